// Command assetload copies encrypted audio assets from a local
// directory into the bridge's configured asset store, keyed by file id
// (the file's base name). The bridge itself never writes assets; this
// is how they get into local or S3 storage in the first place.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/johnnyslush/roon-extension-spotify/internal/assetstore"
)

var errSkipped = errors.New("skipped")

var (
	flagDir       string
	flagBackend   string
	flagStoreRoot string
	flagBucket    string
	flagS3Ep      string
	flagS3Key     string
	flagS3Secret  string
	flagS3SSL     bool
	flagDryRun    bool
	flagWorkers   int
)

var rootCmd = &cobra.Command{
	Use:   "assetload",
	Short: "Upload encrypted audio assets into the bridge's asset store",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&flagDir, "dir", "", "Directory of encrypted asset files to upload")
	rootCmd.Flags().StringVar(&flagBackend, "store-backend", "local", "Storage backend: local | s3")
	rootCmd.Flags().StringVar(&flagStoreRoot, "store-root", "./data/assets", "Root path for local backend")
	rootCmd.Flags().StringVar(&flagBucket, "store-bucket", "bridge-assets", "S3 bucket name")
	rootCmd.Flags().StringVar(&flagS3Ep, "s3-endpoint", "localhost:9000", "S3 endpoint")
	rootCmd.Flags().StringVar(&flagS3Key, "s3-access-key", "", "S3 access key")
	rootCmd.Flags().StringVar(&flagS3Secret, "s3-secret-key", "", "S3 secret key")
	rootCmd.Flags().BoolVar(&flagS3SSL, "s3-ssl", false, "Use TLS for the S3 endpoint")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Print what would be uploaded without modifying anything")
	rootCmd.Flags().IntVar(&flagWorkers, "workers", 4, "Number of parallel upload workers")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	if flagDir == "" {
		return fmt.Errorf("--dir is required")
	}

	store, err := newStore(ctx)
	if err != nil {
		return err
	}

	var paths []string
	if err := filepath.WalkDir(flagDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			slog.Warn("walk error", "path", path, "err", walkErr)
			return nil
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("walking %s: %w", flagDir, err)
	}

	var uploaded, skipped, failed int64

	workers := flagWorkers
	if workers < 1 {
		workers = 1
	}
	pathCh := make(chan string, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range pathCh {
				switch err := upload(ctx, store, p); {
				case errors.Is(err, errSkipped):
					atomic.AddInt64(&skipped, 1)
				case err != nil:
					slog.Error("upload failed", "path", p, "err", err)
					atomic.AddInt64(&failed, 1)
				default:
					atomic.AddInt64(&uploaded, 1)
				}
			}
		}()
	}
	for _, p := range paths {
		pathCh <- p
	}
	close(pathCh)
	wg.Wait()

	slog.Info("asset load complete", "uploaded", uploaded, "skipped", skipped, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d uploads failed", failed)
	}
	return nil
}

// upload stores one file under its base name as the file id. Already-
// present keys are skipped so re-runs are idempotent.
func upload(ctx context.Context, store assetstore.Store, path string) error {
	key := filepath.Base(path)

	exists, err := store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("checking %s: %w", key, err)
	}
	if exists {
		return errSkipped
	}

	if flagDryRun {
		slog.Info("would upload", "path", path, "key", key)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}

	if err := store.Put(ctx, key, f, fi.Size()); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	slog.Info("uploaded", "key", key, "bytes", fi.Size())
	return nil
}

func newStore(ctx context.Context) (assetstore.Store, error) {
	switch flagBackend {
	case "local", "":
		return assetstore.NewLocalFS(flagStoreRoot)
	case "s3":
		return assetstore.NewS3(ctx, assetstore.S3Config{
			Endpoint:  flagS3Ep,
			AccessKey: flagS3Key,
			SecretKey: flagS3Secret,
			Bucket:    flagBucket,
			UseSSL:    flagS3SSL,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", flagBackend)
	}
}

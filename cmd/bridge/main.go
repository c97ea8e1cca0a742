// Command bridge runs the Playback Coordination Core as a standalone
// process: it loads configuration, wires the Track Loader's
// collaborators (Postgres metadata cache, asset storage, catalog HTTP
// client), and starts the host, which in turn owns the dispatcher and
// the HTTP range/admin server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnnyslush/roon-extension-spotify/internal/assetstore"
	"github.com/johnnyslush/roon-extension-spotify/internal/catalog"
	"github.com/johnnyslush/roon-extension-spotify/internal/config"
	"github.com/johnnyslush/roon-extension-spotify/internal/host"
	"github.com/johnnyslush/roon-extension-spotify/internal/snapshot"
	"github.com/johnnyslush/roon-extension-spotify/internal/zone"
)

func main() {
	configPath := flag.String("config", "", "path to bridge.yaml (optional; falls back to defaults + BRIDGE_ env vars)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := slog.Default()

	store, err := catalog.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Warn("postgres unavailable, track metadata will not be cached", "err", err)
		store = nil
	} else {
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("running catalog migrations: %w", err)
		}
		logger.Info("postgres connected")
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable at startup, zone snapshots disabled", "err", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}
	snapshots := snapshot.New(rdb)

	assets, err := newAssetStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("asset store: %w", err)
	}
	logger.Info("asset store ready", "backend", cfg.Assetstore.Backend)

	client := catalog.NewClient(catalog.ClientConfig{
		BaseURL:           cfg.Catalog.BaseURL,
		Token:             cfg.Catalog.Token,
		Timeout:           time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second,
		Retries:           cfg.Catalog.Retries,
		RequestsPerSecond: float64(cfg.Catalog.RequestsPerSecond),
		BurstSize:         cfg.Catalog.BurstSize,
	})

	loader := catalog.NewLoader(store, client, assets, cfg.BitratePreference)

	h := host.New(host.Config{
		Cfg:           cfg,
		Logger:        logger,
		Loader:        loader,
		NewSupervisor: func(zoneID string) zone.SessionSupervisor { return newNoopSupervisor(zoneID) },
		Snapshots:     snapshots,
	})

	if err := h.Start(ctx); err != nil {
		return fmt.Errorf("starting host: %w", err)
	}
	logger.Info("listening", "url", h.URL())

	<-ctx.Done()
	logger.Info("shutting down")
	h.Stop()
	return nil
}

func newAssetStore(ctx context.Context, cfg *config.Config) (assetstore.Store, error) {
	switch cfg.Assetstore.Backend {
	case "s3":
		return assetstore.NewS3(ctx, assetstore.S3Config{
			Endpoint:  cfg.Assetstore.S3.Endpoint,
			AccessKey: cfg.Assetstore.S3.AccessKeyID,
			SecretKey: cfg.Assetstore.S3.SecretAccessKey,
			Bucket:    cfg.Assetstore.S3.Bucket,
			UseSSL:    cfg.Assetstore.S3.UseSSL,
		})
	case "local", "":
		return assetstore.NewLocalFS(cfg.Assetstore.Local.Root)
	default:
		return nil, fmt.Errorf("unknown asset store backend %q", cfg.Assetstore.Backend)
	}
}

// noopSupervisor is the default SessionSupervisor: the streaming-
// service session/auth/discovery stack is an external collaborator
// owned by the embedder, so the standalone binary's default zone
// never actually dials out — it just reports every connect as
// immediately successful and never reports a drop. A real
// embedder wires its own SessionSupervisor into host.Config.NewSupervisor
// in place of this stub.
type noopSupervisor struct{}

func newNoopSupervisor(string) *noopSupervisor { return &noopSupervisor{} }

func (s *noopSupervisor) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (s *noopSupervisor) Disconnect() {}

// Disconnected never fires: this stub has no real transport to lose.
func (s *noopSupervisor) Disconnected() <-chan error { return nil }

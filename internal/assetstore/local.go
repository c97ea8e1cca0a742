package assetstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalFS stores encrypted assets on the local filesystem under a root
// directory, keyed by file_id.
type LocalFS struct {
	root string
}

// NewLocalFS returns a LocalFS backed by root. The directory is
// created if needed.
func NewLocalFS(root string) (*LocalFS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("assetstore: create store root %q: %w", root, err)
	}
	return &LocalFS{root: root}, nil
}

func (l *LocalFS) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

// Put implements Store.
func (l *LocalFS) Put(_ context.Context, key string, r io.Reader, _ int64) error {
	dest := l.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("assetstore: mkdir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("assetstore: create %q: %w", dest, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("assetstore: write %q: %w", dest, err)
	}
	return nil
}

// Open implements Store. mode is accepted for interface parity with
// the S3 backend but otherwise unused: a local file is equally cheap
// to random-access or stream.
func (l *LocalFS) Open(_ context.Context, key string, _ AccessMode) (io.ReadSeekCloser, error) {
	f, err := os.Open(l.path(key))
	if err != nil {
		return nil, fmt.Errorf("assetstore: open %q: %w", key, err)
	}
	return f, nil
}

// Delete implements Store.
func (l *LocalFS) Delete(_ context.Context, key string) error {
	err := os.Remove(l.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Exists implements Store.
func (l *LocalFS) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(l.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Size implements Store.
func (l *LocalFS) Size(_ context.Context, key string) (int64, error) {
	fi, err := os.Stat(l.path(key))
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

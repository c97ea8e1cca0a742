package assetstore

import (
	"bytes"
	"context"
	"io"
	"testing"
)

func TestLocalFSPutOpenRoundTrip(t *testing.T) {
	l, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	ctx := context.Background()
	data := []byte("encrypted bytes")

	if err := l.Put(ctx, "tracks/abc", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put: %v", err)
	}

	r, err := l.Open(ctx, "tracks/abc", AccessModeStreaming)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("expected %q, got %q", data, got)
	}
}

func TestLocalFSExistsAndSize(t *testing.T) {
	l, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	ctx := context.Background()

	if ok, err := l.Exists(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key to not exist, got ok=%v err=%v", ok, err)
	}

	data := []byte("12345")
	if err := l.Put(ctx, "present", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if ok, err := l.Exists(ctx, "present"); err != nil || !ok {
		t.Fatalf("expected present key to exist, got ok=%v err=%v", ok, err)
	}
	size, err := l.Size(ctx, "present")
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != int64(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), size)
	}
}

func TestLocalFSDeleteIsIdempotent(t *testing.T) {
	l, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	ctx := context.Background()

	data := []byte("x")
	if err := l.Put(ctx, "gone", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := l.Delete(ctx, "gone"); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := l.Delete(ctx, "gone"); err != nil {
		t.Fatalf("second Delete on already-removed key should not error: %v", err)
	}
}

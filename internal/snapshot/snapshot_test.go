package snapshot

import (
	"context"
	"testing"

	"github.com/johnnyslush/roon-extension-spotify/internal/events"
)

// A nil *redis.Client is the only configuration exercised here; these
// confirm the no-op degradation path a Redis-less deployment relies
// on.

func TestGetWithoutRedisReturnsNil(t *testing.T) {
	s := New(nil)
	snap, err := s.Get(context.Background(), "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil snapshot without redis, got %+v", snap)
	}
}

func TestApplyWithoutRedisDoesNotPanic(t *testing.T) {
	s := New(nil)
	s.Apply(context.Background(), events.OutboundEvent{
		Type:   events.EvtPlay,
		ZoneID: "A",
	})
}

func TestAllWithoutRedisReturnsEmpty(t *testing.T) {
	s := New(nil)
	snaps := s.All(context.Background(), []string{"A", "B"})
	if len(snaps) != 0 {
		t.Fatalf("expected no snapshots without redis, got %v", snaps)
	}
}

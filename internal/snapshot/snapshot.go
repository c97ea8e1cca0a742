// Package snapshot caches a per-zone now-playing/position snapshot in
// Redis so a reattaching admin client or controller can read the last
// known state without a round trip into the zone goroutine.
//
// Each snapshot is a TTL-keyed JSON blob written on every update and
// read back on a cache hit, falling back to "unknown" rather than
// erroring when the key has expired or Redis is unreachable.
package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnnyslush/roon-extension-spotify/internal/events"
	"github.com/johnnyslush/roon-extension-spotify/pkg/kvkeys"
)

// ttl bounds how long a snapshot survives a zone going away without a
// clean Stop/Clear — long enough to ride out a brief reconnect, short
// enough that a permanently disabled zone's last state does not linger.
const ttl = 10 * time.Minute

// Snapshot is the last known playback state for one zone.
type Snapshot struct {
	ZoneID     string                `json:"zone_id"`
	State      string                `json:"state"` // "stopped" | "playing" | "paused"
	NowPlaying *events.NowPlayingInfo `json:"now_playing,omitempty"`
	PositionMs int64                 `json:"position_ms"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// Store reads and writes zone snapshots. A nil *redis.Client degrades
// every call to a no-op / not-found so the host can run without Redis
// configured at all.
type Store struct {
	rdb *redis.Client
}

// New wraps rdb, which may be nil.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Apply folds an outbound event into the zone's cached snapshot. Events
// that don't describe play/pause/stop/position (e.g. VolumeSet) leave
// the cached snapshot untouched, UpdatedAt included.
func (s *Store) Apply(ctx context.Context, evt events.OutboundEvent) {
	if s.rdb == nil {
		return
	}
	snap, _ := s.Get(ctx, evt.ZoneID)
	if snap == nil {
		snap = &Snapshot{ZoneID: evt.ZoneID, State: "stopped"}
	}
	switch evt.Type {
	case events.EvtPlay:
		snap.State = "playing"
		snap.NowPlaying = evt.NowPlaying
		snap.PositionMs = evt.PositionMs
	case events.EvtUnpause:
		snap.State = "playing"
	case events.EvtPause:
		snap.State = "paused"
	case events.EvtSeek:
		snap.PositionMs = evt.SeekPositionMs
	case events.EvtStop:
		snap.State = "stopped"
		snap.NowPlaying = nil
		snap.PositionMs = 0
	case events.EvtPreload:
		// Preloading does not change the current playback snapshot.
		return
	default:
		return
	}
	snap.UpdatedAt = time.Now()
	s.set(ctx, snap)
}

// Get returns the cached snapshot for zoneID, or nil if there is none
// (never seen, expired, or Redis unavailable).
func (s *Store) Get(ctx context.Context, zoneID string) (*Snapshot, error) {
	if s.rdb == nil {
		return nil, nil
	}
	raw, err := s.rdb.Get(ctx, kvkeys.ZoneSnapshot(zoneID)).Result()
	if err != nil {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// All returns every cached snapshot for the given zone ids, skipping
// any that are missing.
func (s *Store) All(ctx context.Context, zoneIDs []string) []Snapshot {
	out := make([]Snapshot, 0, len(zoneIDs))
	for _, id := range zoneIDs {
		snap, err := s.Get(ctx, id)
		if err != nil || snap == nil {
			continue
		}
		out = append(out, *snap)
	}
	return out
}

func (s *Store) set(ctx context.Context, snap *Snapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	s.rdb.Set(ctx, kvkeys.ZoneSnapshot(snap.ZoneID), b, ttl)
}

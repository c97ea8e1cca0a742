// Package zone implements the per-room playback state machine: one
// goroutine per zone, multiplexing service-side commands,
// controller-side events, HTTP range-server queries, and the progress
// of a pending load/preload, translating between the two asynchronous
// peers without feedback loops.
package zone

import (
	"github.com/johnnyslush/roon-extension-spotify/internal/catalog"
	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
)

// PlayStateKind enumerates the zone's quiescent states. There is no
// transient placeholder state between transitions: Go's struct value
// semantics let a transition construct the new PlayState value
// directly and assign it in one statement, so no intermediate state
// is ever observable.
type PlayStateKind int

const (
	Stopped PlayStateKind = iota
	Loading
	Playing
	Paused
)

func (k PlayStateKind) String() string {
	switch k {
	case Stopped:
		return "Stopped"
	case Loading:
		return "Loading"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// PlayState is the zone's play-side state. Only the fields relevant
// to Kind are meaningful; the rest are zero.
type PlayState struct {
	Kind PlayStateKind

	// Loading | Playing | Paused
	TrackID       trackid.ID
	PlayRequestID uint64
	PreloadID     *uint64

	// Loading
	StartPlayback bool
	PrevTrackID   trackid.ID

	// Playing | Paused
	PositionMs           int64
	DurationMs           int64
	SuggestedPreloadDone bool
	Track                *catalog.LoadedTrack
}

// PreloadSlotKind enumerates the preload slot's states.
type PreloadSlotKind int

const (
	PreloadNone PreloadSlotKind = iota
	PreloadLoading
	PreloadReady
)

// PreloadSlot is the zone's preload-side state.
type PreloadSlot struct {
	Kind      PreloadSlotKind
	TrackID   trackid.ID
	PreloadID uint64
	Track     *catalog.LoadedTrack
}

// matchesTrack reports whether the play state currently holds
// track id id and is in a state where an HTTP read request against it
// is meaningful (Playing or Paused; a Loading track has no bytes yet).
func (s PlayState) matchesTrack(id trackid.ID) bool {
	return (s.Kind == Playing || s.Kind == Paused) && s.TrackID.Equal(id)
}

func (p PreloadSlot) matchesTrack(id trackid.ID) bool {
	return p.Kind == PreloadReady && p.TrackID.Equal(id)
}

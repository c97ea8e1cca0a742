package zone

import (
	"github.com/johnnyslush/roon-extension-spotify/internal/events"
	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
)

// handleControllerMessage dispatches a single controller-side event.
// DisableZone is handled directly in Run and never reaches this method.
func (z *Zone) handleControllerMessage(msg events.ControllerMessage) {
	switch msg.Type {
	case events.MsgPlaying, events.MsgUnpaused:
		z.handlePlayingOrUnpaused()
	case events.MsgPaused:
		z.handlePaused()
	case events.MsgTime:
		z.handleTime(msg)
	case events.MsgStopped:
		z.handleStopped()
	case events.MsgEndedNaturally:
		z.emitService(ServiceEvent{Kind: SvcStopped})
	case events.MsgOnToNext:
		if z.state.Kind == Playing {
			z.emitService(ServiceEvent{Kind: SvcEndOfTrack, TrackID: z.state.TrackID, PlayRequestID: z.state.PlayRequestID})
		} else {
			z.logUnexpectedTransition("OnToNext")
		}
	case events.MsgNextTrack:
		if z.state.Kind == Playing || z.state.Kind == Paused {
			z.emitService(ServiceEvent{Kind: SvcEndOfTrack, TrackID: z.state.TrackID, PlayRequestID: z.state.PlayRequestID})
		} else {
			z.logUnexpectedTransition("NextTrack")
		}
	case events.MsgPreviousTrack:
		if z.state.Kind == Playing || z.state.Kind == Paused {
			z.emitService(ServiceEvent{Kind: SvcPrev, TrackID: z.state.TrackID, PlayRequestID: z.state.PlayRequestID})
		} else {
			z.logUnexpectedTransition("PreviousTrack")
		}
	case events.MsgVolume:
		z.emitService(ServiceEvent{Kind: SvcVolumeSet, Volume: msg.Volume})
	case events.MsgSeeked, events.MsgError:
		// No state-machine effect; acknowledged and dropped.
	}
}

func (z *Zone) handlePlayingOrUnpaused() {
	switch z.state.Kind {
	case Paused, Playing:
		z.state.Kind = Playing
		z.emitService(ServiceEvent{
			Kind:          SvcPlaying,
			TrackID:       z.state.TrackID,
			PlayRequestID: z.state.PlayRequestID,
			PositionMs:    z.state.PositionMs,
			DurationMs:    z.state.DurationMs,
		})
	default:
		z.logUnexpectedTransition("Playing/Unpaused")
	}
}

func (z *Zone) handlePaused() {
	switch z.state.Kind {
	case Playing, Paused:
		z.state.Kind = Paused
		z.emitService(ServiceEvent{
			Kind:          SvcPaused,
			TrackID:       z.state.TrackID,
			PlayRequestID: z.state.PlayRequestID,
			PositionMs:    z.state.PositionMs,
			DurationMs:    z.state.DurationMs,
		})
	default:
		z.logUnexpectedTransition("Paused")
	}
}

// handleTime applies the stale-track-id rule: a Time report for a
// track id other than the zone's current one is silently dropped so a
// just-ended track's trailing position updates cannot poison the
// track that replaced it.
func (z *Zone) handleTime(msg events.ControllerMessage) {
	if z.state.Kind != Playing && z.state.Kind != Paused {
		return
	}
	reported, err := trackid.Parse(msg.TrackID)
	if err != nil || !reported.Equal(z.state.TrackID) {
		return
	}
	z.state.PositionMs = msg.SeekPositionMs
	if z.state.Kind == Playing {
		z.emitService(ServiceEvent{
			Kind:          SvcPlaying,
			TrackID:       z.state.TrackID,
			PlayRequestID: z.state.PlayRequestID,
			PositionMs:    z.state.PositionMs,
			DurationMs:    z.state.DurationMs,
		})
	} else {
		z.emitService(ServiceEvent{
			Kind:          SvcPaused,
			TrackID:       z.state.TrackID,
			PlayRequestID: z.state.PlayRequestID,
			PositionMs:    z.state.PositionMs,
			DurationMs:    z.state.DurationMs,
		})
	}
	z.checkPreloadHeuristic()
}

func (z *Zone) handleStopped() {
	switch z.state.Kind {
	case Playing, Paused:
		if z.state.Track != nil {
			z.state.Track.Close()
		}
		z.state = PlayState{Kind: Stopped}
		z.yetToPlay = true
		z.emitService(ServiceEvent{Kind: SvcStopped})
	default:
		z.logUnexpectedTransition("Stopped")
	}
}

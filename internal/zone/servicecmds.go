package zone

import (
	"context"

	"github.com/johnnyslush/roon-extension-spotify/internal/events"
	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
)

// handleServiceCommand dispatches a single service-side command.
// Handlers never suspend; a command that needs track bytes starts a
// worker goroutine and returns immediately, leaving progress to be
// observed via loadResultCh/preloadResultCh.
func (z *Zone) handleServiceCommand(ctx context.Context, cmd ServiceCommand) {
	switch cmd.Kind {
	case CmdLoad:
		z.handleLoad(ctx, cmd)
	case CmdPlay:
		z.handlePlay()
	case CmdPause:
		z.handlePause()
	case CmdStop:
		z.handleStop()
	case CmdSeek:
		z.handleSeek(cmd.PositionMs)
	case CmdPreload:
		z.handlePreload(ctx, cmd.TrackID)
	case CmdEmitVolumeSet:
		z.handleEmitVolumeSet(cmd.Volume)
	}
}

func (z *Zone) handleLoad(ctx context.Context, cmd ServiceCommand) {
	// A Load always replaces whatever track the zone currently holds.
	if z.state.Track != nil {
		z.state.Track.Close()
	}

	// If the requested track is already the preloaded one, consume the
	// preload instead of starting a fresh load: emit Play (not Loading),
	// carrying the preload_id so the controller can correlate
	// already-buffered HTTP bytes.
	if z.preload.matchesTrack(cmd.TrackID) {
		track := z.preload.Track
		preloadID := z.preload.PreloadID
		z.preload = PreloadSlot{Kind: PreloadNone}

		z.yetToPlay = false
		z.state = PlayState{
			Kind:          Playing,
			TrackID:       cmd.TrackID,
			PlayRequestID: cmd.PlayRequestID,
			PositionMs:    track.StartPositionMs,
			DurationMs:    track.Metadata.DurationMs,
			Track:         track,
			PreloadID:     &preloadID,
		}
		z.emit(events.OutboundEvent{
			Type:          events.EvtPlay,
			NowPlaying:    z.nowPlaying(track.Metadata),
			PositionMs:    track.StartPositionMs,
			PlayRequestID: cmd.PlayRequestID,
			PreloadID:     &preloadID,
		})
		z.checkPreloadHeuristic()
		return
	}

	prevTrackID := z.state.TrackID
	z.state = PlayState{
		Kind:          Loading,
		TrackID:       cmd.TrackID,
		PlayRequestID: cmd.PlayRequestID,
		StartPlayback: cmd.StartPlayback,
		PrevTrackID:   prevTrackID,
	}
	z.emitService(ServiceEvent{
		Kind:          SvcLoading,
		TrackID:       cmd.TrackID,
		PlayRequestID: cmd.PlayRequestID,
		PositionMs:    cmd.PositionMs,
	})

	// A preload already in flight for this same track from position 0
	// has its loader stolen rather than being started twice; any other
	// in-flight or ready preload
	// (a different track, or this one at a different position) is
	// unconditionally dropped. Leaving it in place would let it resolve
	// to Ready{t} while state also becomes Playing{t}, violating
	// invariant 3.
	if z.preload.Kind == PreloadLoading && cmd.PositionMs == 0 && z.preload.TrackID.Equal(cmd.TrackID) {
		z.loadResultCh = z.preloadResultCh
		z.preloadResultCh = nil
		z.preload = PreloadSlot{Kind: PreloadNone}
		return
	}

	if z.preload.Track != nil {
		z.preload.Track.Close()
	}
	z.preload = PreloadSlot{Kind: PreloadNone}
	z.startLoad(ctx, cmd.TrackID, cmd.PositionMs)
}

func (z *Zone) handlePlay() {
	switch z.state.Kind {
	case Paused:
		if z.yetToPlay {
			z.yetToPlay = false
			track := z.state.Track
			z.emit(events.OutboundEvent{
				Type:          events.EvtPlay,
				NowPlaying:    z.nowPlaying(track.Metadata),
				PositionMs:    z.state.PositionMs,
				PlayRequestID: z.state.PlayRequestID,
				PreloadID:     z.state.PreloadID,
			})
		} else {
			z.emit(events.OutboundEvent{Type: events.EvtUnpause})
		}
		z.state.Kind = Playing
	case Loading:
		z.state.StartPlayback = true
	default:
		z.logUnexpectedTransition("Play")
	}
}

func (z *Zone) handlePause() {
	switch z.state.Kind {
	case Playing:
		z.state.Kind = Paused
		z.emit(events.OutboundEvent{Type: events.EvtPause})
	case Loading:
		z.state.StartPlayback = false
	default:
		z.logUnexpectedTransition("Pause")
	}
}

func (z *Zone) handleStop() {
	switch z.state.Kind {
	case Loading, Playing, Paused:
		if z.state.Track != nil {
			z.state.Track.Close()
		}
		z.state = PlayState{Kind: Stopped}
		z.yetToPlay = true
		z.emit(events.OutboundEvent{Type: events.EvtStop})
		z.emitService(ServiceEvent{Kind: SvcStopped})
	default:
		z.logUnexpectedTransition("Stop")
	}
}

func (z *Zone) handleSeek(positionMs int64) {
	switch z.state.Kind {
	case Playing, Paused:
		if positionMs >= z.state.DurationMs {
			z.logUnexpectedTransition("Seek past duration")
			return
		}
		z.state.PositionMs = positionMs
		z.emit(events.OutboundEvent{Type: events.EvtSeek, SeekPositionMs: positionMs})
		z.checkPreloadHeuristic()
	default:
		z.logUnexpectedTransition("Seek")
	}
}

// handlePreload enforces the preload discipline: a preload only ever
// replaces an idle slot or one already holding a different track; a
// preload already in flight or ready for the same track is left
// alone.
func (z *Zone) handlePreload(ctx context.Context, trackID trackid.ID) {
	if z.preload.Kind != PreloadNone && z.preload.TrackID.Equal(trackID) {
		return
	}
	if z.preload.Track != nil {
		z.preload.Track.Close()
	}
	z.nextPreloadID++
	z.preload = PreloadSlot{
		Kind:      PreloadLoading,
		TrackID:   trackID,
		PreloadID: z.nextPreloadID,
	}
	z.startPreload(ctx, trackID)
}

func (z *Zone) handleEmitVolumeSet(volume float64) {
	switch z.state.Kind {
	case Playing, Paused:
		z.emit(events.OutboundEvent{Type: events.EvtVolumeSet, Volume: volume})
	default:
		z.logUnexpectedTransition("EmitVolumeSet")
	}
}

func (z *Zone) handleLoadResult(res loadOutcome) {
	if res.err != nil {
		z.state = PlayState{Kind: Stopped}
		z.yetToPlay = true
		return
	}
	if z.state.Kind != Loading {
		// The zone moved on (e.g. Stop/DisableZone raced the worker);
		// drop the late result.
		res.track.Close()
		return
	}

	track := res.track
	if z.state.StartPlayback {
		z.yetToPlay = false
		z.emit(events.OutboundEvent{
			Type:          events.EvtPlay,
			NowPlaying:    z.nowPlaying(track.Metadata),
			PositionMs:    track.StartPositionMs,
			PlayRequestID: z.state.PlayRequestID,
		})
		z.emitService(ServiceEvent{
			Kind:          SvcLoading,
			TrackID:       z.state.TrackID,
			PlayRequestID: z.state.PlayRequestID,
			PositionMs:    track.StartPositionMs,
		})
		z.state.Kind = Playing
	} else {
		z.emitService(ServiceEvent{
			Kind:          SvcPaused,
			TrackID:       z.state.TrackID,
			PlayRequestID: z.state.PlayRequestID,
			PositionMs:    track.StartPositionMs,
			DurationMs:    track.Metadata.DurationMs,
		})
		z.state.Kind = Paused
	}
	z.state.PositionMs = track.StartPositionMs
	z.state.DurationMs = track.Metadata.DurationMs
	z.state.Track = track
	z.checkPreloadHeuristic()
}

func (z *Zone) handlePreloadResult(res loadOutcome) {
	if res.err != nil {
		z.preload = PreloadSlot{Kind: PreloadNone}
		return
	}
	if z.preload.Kind != PreloadLoading {
		res.track.Close()
		return
	}
	z.emit(events.OutboundEvent{Type: events.EvtPreload, NowPlaying: z.nowPlaying(res.track.Metadata)})
	z.preload = PreloadSlot{
		Kind:      PreloadReady,
		TrackID:   z.preload.TrackID,
		PreloadID: z.preload.PreloadID,
		Track:     res.track,
	}
}

package zone

import (
	"context"
	"log/slog"

	"github.com/johnnyslush/roon-extension-spotify/internal/catalog"
	"github.com/johnnyslush/roon-extension-spotify/internal/events"
	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
)

// preloadNextTrackBeforeEndMs is how close to the end of the current
// track the zone suggests preloading the next one.
const preloadNextTrackBeforeEndMs = 30_000

// loadOutcome is delivered over the (pre)load result channel once a
// Loader.Load call finishes on its worker goroutine.
type loadOutcome struct {
	track *catalog.LoadedTrack
	err   error
}

// trackLoader is the subset of *catalog.Loader a Zone depends on,
// narrowed so tests can substitute a fake without standing up a real
// catalog client, store, and asset backend.
type trackLoader interface {
	Load(ctx context.Context, id trackid.ID, positionMs int64) (*catalog.LoadedTrack, error)
}

// Zone is a single-writer state machine for one controller zone. All
// mutation happens inside Run's goroutine; every other method either
// enqueues onto a channel or is called by Run itself.
type Zone struct {
	ID   string
	Name string

	log *slog.Logger

	loader     trackLoader
	supervisor SessionSupervisor
	reconnect  *reconnectLimiter

	serviceCmdCh chan ServiceCommand
	controllerCh chan events.ControllerMessage
	queryCh      chan any

	outboundCh chan<- events.OutboundEvent
	serviceCh  chan<- ServiceEvent

	state   PlayState
	preload PreloadSlot

	// yetToPlay is true whenever the zone has loaded or stopped but
	// not yet told the controller to start playing.
	yetToPlay bool

	nextPreloadID uint64

	loadResultCh    chan loadOutcome
	preloadResultCh chan loadOutcome

	disconnectedCh    <-chan error
	reconnectResultCh chan error
}

// Config bundles the collaborators a Zone needs.
type Config struct {
	ID         string
	Name       string
	Loader     trackLoader
	Supervisor SessionSupervisor
	Logger     *slog.Logger

	// OutboundEvents receives controller-facing events; the dispatcher
	// forwards them to the host callback.
	OutboundEvents chan<- events.OutboundEvent
	// ServiceEvents receives the events meant for the streaming-service
	// client.
	ServiceEvents chan<- ServiceEvent
}

// New builds a Zone. Run must be called to start its goroutine.
func New(cfg Config) *Zone {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	z := &Zone{
		ID:           cfg.ID,
		Name:         cfg.Name,
		log:          logger.With("zone_id", cfg.ID, "zone_name", cfg.Name),
		loader:       cfg.Loader,
		supervisor:   cfg.Supervisor,
		reconnect:    newReconnectLimiter(),
		serviceCmdCh: make(chan ServiceCommand, 16),
		controllerCh: make(chan events.ControllerMessage, 16),
		queryCh:      make(chan any, 64),
		outboundCh:   cfg.OutboundEvents,
		serviceCh:    cfg.ServiceEvents,
		state:        PlayState{Kind: Stopped},
		preload:      PreloadSlot{Kind: PreloadNone},
		yetToPlay:    true,
	}
	if z.supervisor != nil {
		z.disconnectedCh = z.supervisor.Disconnected()
	}
	return z
}

// SendServiceCommand enqueues a service-side command. Closing the
// channel this is backed by is not exposed; callers that want the zone
// to observe peer disconnect should call CloseServicePeer instead.
func (z *Zone) SendServiceCommand(cmd ServiceCommand) { z.serviceCmdCh <- cmd }

// SendControllerMessage enqueues a controller-side message; the
// dispatcher forwards per-zone events here.
func (z *Zone) SendControllerMessage(msg events.ControllerMessage) { z.controllerCh <- msg }

// SendQuery enqueues an HTTP range-server query (TrackInfoQuery or
// TrackReadQuery).
func (z *Zone) SendQuery(q any) { z.queryCh <- q }

// CloseServicePeer signals that the streaming-service client has
// disconnected.
func (z *Zone) CloseServicePeer() { close(z.serviceCmdCh) }

// Run executes the zone's single-writer loop until ctx is canceled,
// the service command channel closes, or a DisableZone message
// arrives. It always returns after releasing any loaded tracks.
func (z *Zone) Run(ctx context.Context) {
	defer z.shutdown()

	for {
		select {
		case cmd, ok := <-z.serviceCmdCh:
			if !ok {
				z.log.Info("service command channel closed, zone exiting")
				return
			}
			z.handleServiceCommand(ctx, cmd)

		case msg, ok := <-z.controllerCh:
			if !ok {
				return
			}
			if msg.Type == events.MsgDisableZone {
				z.log.Info("zone disabled")
				return
			}
			z.handleControllerMessage(msg)

		case q := <-z.queryCh:
			z.handleQuery(q)

		case res := <-z.loadResultCh:
			z.loadResultCh = nil
			z.handleLoadResult(res)

		case res := <-z.preloadResultCh:
			z.preloadResultCh = nil
			z.handlePreloadResult(res)

		case cause, ok := <-z.disconnectedCh:
			if !ok {
				z.disconnectedCh = nil
				continue
			}
			if !z.handleDisconnect(ctx, cause) {
				return
			}

		case err := <-z.reconnectResultCh:
			if !z.handleReconnectResult(ctx, err) {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (z *Zone) shutdown() {
	if z.supervisor != nil {
		z.supervisor.Disconnect()
	}
	if z.state.Track != nil {
		z.state.Track.Close()
	}
	if z.preload.Track != nil {
		z.preload.Track.Close()
	}
}

func (z *Zone) emit(evt events.OutboundEvent) {
	evt.ZoneID = z.ID
	if z.outboundCh != nil {
		z.outboundCh <- evt
	}
}

func (z *Zone) emitService(evt ServiceEvent) {
	if z.serviceCh != nil {
		z.serviceCh <- evt
	}
}

func (z *Zone) nowPlaying(meta catalog.AudioMetadata) *events.NowPlayingInfo {
	return &events.NowPlayingInfo{
		TrackID:   meta.ID.URI(),
		Name:      meta.Name,
		AlbumName: meta.Album,
		Artists:   meta.Artists,
		Covers:    meta.Covers,
		ShowName:  meta.Show,
	}
}

// startLoad begins loading trackID at positionMs on a worker goroutine
// and wires loadResultCh to receive the outcome; fetching and
// decrypting a track blocks, so it never runs on the zone's own
// goroutine.
func (z *Zone) startLoad(ctx context.Context, id trackid.ID, positionMs int64) {
	ch := make(chan loadOutcome, 1)
	z.loadResultCh = ch
	go func() {
		track, err := z.loader.Load(ctx, id, positionMs)
		ch <- loadOutcome{track: track, err: err}
	}()
}

// startPreload begins preloading trackID at position 0 on a worker
// goroutine.
func (z *Zone) startPreload(ctx context.Context, id trackid.ID) {
	ch := make(chan loadOutcome, 1)
	z.preloadResultCh = ch
	go func() {
		track, err := z.loader.Load(ctx, id, 0)
		ch <- loadOutcome{track: track, err: err}
	}()
}

// checkPreloadHeuristic: while Playing or Paused, once fewer than 30s
// remain and the suggestion has not already been made for this
// play_request_id, tell the service it is time to preload the next
// track.
func (z *Zone) checkPreloadHeuristic() {
	if z.state.Kind != Playing && z.state.Kind != Paused {
		return
	}
	if z.state.SuggestedPreloadDone {
		return
	}
	timeToEnd := z.state.DurationMs - z.state.PositionMs
	if timeToEnd >= preloadNextTrackBeforeEndMs {
		return
	}
	z.state.SuggestedPreloadDone = true
	z.emitService(ServiceEvent{
		Kind:          SvcTimeToPreloadNextTrack,
		TrackID:       z.state.TrackID,
		PlayRequestID: z.state.PlayRequestID,
	})
}

func (z *Zone) logUnexpectedTransition(what string) {
	z.log.Warn("unexpected transition, ignoring", "command", what, "state", z.state.Kind.String())
}

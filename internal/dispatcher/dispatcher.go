// Package dispatcher implements the zone registry: a single goroutine
// owning the zone_id → Zone mapping, fanning inbound controller
// messages and HTTP range-server queries to the right zone and
// forwarding every zone's outbound event stream to the host callback
// in arrival order.
//
// One goroutine owns a map guarded by channel ownership rather than a
// mutex, with register/unregister-style traffic driving membership.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/johnnyslush/roon-extension-spotify/internal/catalog"
	"github.com/johnnyslush/roon-extension-spotify/internal/events"
	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
	"github.com/johnnyslush/roon-extension-spotify/internal/zone"
)

// TrackLoader is the subset of *catalog.Loader the dispatcher hands to
// every zone it creates.
type TrackLoader interface {
	Load(ctx context.Context, id trackid.ID, positionMs int64) (*catalog.LoadedTrack, error)
}

// Config bundles the collaborators a Dispatcher needs.
type Config struct {
	Logger *slog.Logger
	Loader TrackLoader

	// NewSupervisor builds the per-zone streaming-service session
	// supervisor. May be nil, in which case zones run without one.
	NewSupervisor func(zoneID string) zone.SessionSupervisor

	// HostCallback receives every outbound event from every zone, in
	// the arrival order the zones produced them.
	HostCallback func(events.OutboundEvent)

	// ServiceEvents receives every zone's service-side player events,
	// tagged with the zone id that produced them. The streaming-service
	// session itself lives outside this package; this is the seam a
	// binding uses to feed them to its own embedded client. May be nil.
	ServiceEvents func(zoneID string, evt zone.ServiceEvent)
}

// zoneHandle is what the Dispatcher keeps per live zone.
type zoneHandle struct {
	z      *zone.Zone
	cancel context.CancelFunc
}

// Dispatcher is the single-writer owner of the zone_id → Zone map.
type Dispatcher struct {
	log              *slog.Logger
	loader           TrackLoader
	newSupervisor    func(string) zone.SessionSupervisor
	hostCallback     func(events.OutboundEvent)
	serviceEventSink func(string, zone.ServiceEvent)

	zones map[string]*zoneHandle

	controllerCh chan events.ControllerMessage
	queryCh      chan any
	zoneDoneCh   chan string
	outboundCh   chan events.OutboundEvent

	stopCh chan struct{}
	doneCh chan struct{}

	wg sync.WaitGroup
}

// New builds a Dispatcher. Run must be called to start its goroutine.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		log:              logger,
		loader:           cfg.Loader,
		newSupervisor:    cfg.NewSupervisor,
		hostCallback:     cfg.HostCallback,
		serviceEventSink: cfg.ServiceEvents,
		zones:            make(map[string]*zoneHandle),
		controllerCh:     make(chan events.ControllerMessage, 64),
		queryCh:          make(chan any, 256),
		zoneDoneCh:       make(chan string, 16),
		outboundCh:       make(chan events.OutboundEvent, 256),
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// SendControllerMessage enqueues an inbound controller message (spec
// §4.5's send_controller_message).
func (d *Dispatcher) SendControllerMessage(msg events.ControllerMessage) {
	select {
	case d.controllerCh <- msg:
	case <-d.doneCh:
	}
}

// SendQuery enqueues an HTTP range-server query: a TrackInfoRequest or
// a TrackReadRequest.
func (d *Dispatcher) SendQuery(q any) {
	select {
	case d.queryCh <- q:
	case <-d.doneCh:
	}
}

// Stop breaks the dispatcher loop, dropping every zone. It blocks
// until every zone has shut down.
func (d *Dispatcher) Stop() {
	select {
	case <-d.doneCh:
		return
	default:
	}
	close(d.stopCh)
	<-d.doneCh
}

// Run executes the dispatcher's single-writer loop until Stop is
// called. It also drains outboundCh to the host callback in a separate
// goroutine so a slow callback never blocks zone routing.
func (d *Dispatcher) Run() {
	defer close(d.doneCh)

	forwarderDone := make(chan struct{})
	go func() {
		defer close(forwarderDone)
		for evt := range d.outboundCh {
			if d.hostCallback != nil {
				d.hostCallback(evt)
			}
		}
	}()

	for {
		select {
		case msg := <-d.controllerCh:
			d.handleControllerMessage(msg)

		case q := <-d.queryCh:
			d.handleQuery(q)

		case id := <-d.zoneDoneCh:
			if _, ok := d.zones[id]; ok {
				delete(d.zones, id)
				d.log.Info("zone removed", "zone_id", id)
			}

		case <-d.stopCh:
			for id, zh := range d.zones {
				zh.cancel()
				delete(d.zones, id)
			}
			d.wg.Wait()
			close(d.outboundCh)
			<-forwarderDone
			return
		}
	}
}

func (d *Dispatcher) handleControllerMessage(msg events.ControllerMessage) {
	switch msg.Type {
	case events.MsgEnableZone:
		d.enableZone(msg.ZoneID, msg.ZoneName)
	case events.MsgDisableZone:
		d.disableZone(msg.ZoneID, msg)
	default:
		zh, ok := d.zones[msg.ZoneID]
		if !ok {
			d.log.Warn("dropping controller message for unknown zone", "zone_id", msg.ZoneID, "type", msg.Type)
			return
		}
		zh.z.SendControllerMessage(msg)
	}
}

func (d *Dispatcher) enableZone(id, name string) {
	if _, exists := d.zones[id]; exists {
		d.log.Info("ignoring EnableZone for already-enabled zone", "zone_id", id)
		return
	}

	var supervisor zone.SessionSupervisor
	if d.newSupervisor != nil {
		supervisor = d.newSupervisor(id)
	}

	serviceEvents := make(chan zone.ServiceEvent, 64)
	z := zone.New(zone.Config{
		ID:             id,
		Name:           name,
		Loader:         d.loader,
		Supervisor:     supervisor,
		Logger:         d.log,
		OutboundEvents: d.outboundCh,
		ServiceEvents:  serviceEvents,
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.zones[id] = &zoneHandle{z: z, cancel: cancel}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for evt := range serviceEvents {
			if d.serviceEventSink != nil {
				d.serviceEventSink(id, evt)
			}
		}
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		z.Run(ctx)
		close(serviceEvents)
		select {
		case d.zoneDoneCh <- id:
		case <-d.stopCh:
		}
	}()

	d.log.Info("zone enabled", "zone_id", id, "zone_name", name, "device_id", events.DeviceID(id))
}

func (d *Dispatcher) disableZone(id string, msg events.ControllerMessage) {
	zh, ok := d.zones[id]
	if !ok {
		d.log.Warn("DisableZone for unknown zone", "zone_id", id)
		return
	}
	delete(d.zones, id)
	zh.z.SendControllerMessage(msg)
}

// Package host is the bridge's lifecycle owner: it starts and joins
// the dispatcher and the single process-wide HTTP server, and exposes
// Start/Stop/SendControllerMessage/Port/URL to whatever embeds this
// bridge. Outbound events reach external embedders through a
// WebSocket feed plus an admin HTTP API rather than an in-process
// callback.
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/johnnyslush/roon-extension-spotify/internal/config"
	"github.com/johnnyslush/roon-extension-spotify/internal/dispatcher"
	"github.com/johnnyslush/roon-extension-spotify/internal/events"
	"github.com/johnnyslush/roon-extension-spotify/internal/snapshot"
	"github.com/johnnyslush/roon-extension-spotify/internal/streamserver"
	"github.com/johnnyslush/roon-extension-spotify/internal/zone"
)

// Config bundles the collaborators a Host needs to start the bridge.
type Config struct {
	Cfg    *config.Config
	Logger *slog.Logger

	Loader        dispatcher.TrackLoader
	NewSupervisor func(zoneID string) zone.SessionSupervisor
	ServiceEvents func(zoneID string, evt zone.ServiceEvent)
	Snapshots     *snapshot.Store
}

// Host is the lifecycle owner for one bridge process: the dispatcher
// goroutine, the HTTP listener serving both the range server and the
// admin API, the WebSocket outbound-event feed, and (optionally) LAN
// discovery.
type Host struct {
	cfg *config.Config
	log *slog.Logger

	snapshots *snapshot.Store
	disp      *dispatcher.Dispatcher
	hub       *eventHub
	discovery *discoveryServer

	srv      *http.Server
	listener net.Listener

	mu       sync.RWMutex
	port     int
	running  bool
	stopOnce sync.Once
}

// New builds a Host. Start must be called to bring it up.
func New(cfg Config) *Host {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	snapshots := cfg.Snapshots
	if snapshots == nil {
		snapshots = snapshot.New(nil)
	}

	h := &Host{
		cfg:       cfg.Cfg,
		log:       logger,
		snapshots: snapshots,
		hub:       newEventHub(logger),
	}
	h.disp = dispatcher.New(dispatcher.Config{
		Logger:        logger,
		Loader:        cfg.Loader,
		NewSupervisor: cfg.NewSupervisor,
		ServiceEvents: cfg.ServiceEvents,
		HostCallback:  h.handleOutbound,
	})
	return h
}

// handleOutbound is the dispatcher's HostCallback: it updates the
// snapshot cache and fans the event out to every connected WebSocket
// client.
func (h *Host) handleOutbound(evt events.OutboundEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	h.snapshots.Apply(ctx, evt)

	b, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("marshal outbound event", "err", err)
		return
	}
	h.hub.Publish(b)
}

// Start binds the HTTP listener, begins serving, and launches the
// dispatcher and (if configured) mDNS discovery. It returns once the
// listener is bound; serving continues in background goroutines.
func (h *Host) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", h.cfg.HTTP.Bind, h.cfg.HTTP.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("host: listen on %s: %w", addr, err)
	}
	h.listener = ln
	h.mu.Lock()
	h.port = ln.Addr().(*net.TCPAddr).Port
	h.mu.Unlock()

	go h.hub.run()
	go h.disp.Run()

	r := h.router()
	h.srv = &http.Server{
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming — no write timeout
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := h.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.log.Error("http server exited", "err", err)
		}
	}()

	if h.cfg.Discovery.Enabled {
		disc, err := startDiscovery(h.Port(), h.cfg.Discovery.Service, h.cfg.Discovery.Instance, h.log)
		if err != nil {
			h.log.Warn("mdns discovery unavailable", "err", err)
		} else {
			h.discovery = disc
		}
	}

	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	h.log.Info("host started", "bind", h.cfg.HTTP.Bind, "port", h.Port())
	return nil
}

func (h *Host) router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	stream := streamserver.New(h.disp, h.log)
	stream.Routes(r)

	r.Route("/admin", func(r chi.Router) {
		if h.cfg.Admin.RequireToken {
			r.Use(jwtMiddleware(h.cfg.Admin.JWTSecret))
		}
		r.Post("/controller-message", h.adminControllerMessage)
		r.Get("/status", h.adminStatus)
		r.Get("/ws", h.hub.serveWS)
	})

	return r
}

// Stop signals the dispatcher to quiesce every zone, stops the HTTP
// server and mDNS discovery, and blocks until both have shut down.
func (h *Host) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()

		h.disp.Stop()
		h.hub.shutdown()
		h.discovery.shutdown(h.log)

		if h.srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = h.srv.Shutdown(ctx)
		}
		h.log.Info("host stopped")
	})
}

// SendControllerMessage decodes a single JSON-encoded controller
// message and enqueues it onto the dispatcher.
func (h *Host) SendControllerMessage(raw []byte) error {
	var msg events.ControllerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("host: decoding controller message: %w", err)
	}
	h.disp.SendControllerMessage(msg)
	return nil
}

// Port returns the bound HTTP port (meaningful only after Start).
func (h *Host) Port() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.port
}

// URL returns the base URL the controller should use to reach this
// host's HTTP surface.
func (h *Host) URL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	bind := h.cfg.HTTP.Bind
	if bind == "" || bind == "0.0.0.0" {
		bind = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", bind, h.port)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package host

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/mdns"
)

// discoveryServer wraps an mDNS responder advertising this bridge
// instance so a controller on the same LAN can find it without static
// configuration.
type discoveryServer struct {
	server *mdns.Server
}

// startDiscovery begins advertising the bridge on the local network
// via mDNS under the given service type (e.g. "_roon-extension-spotify._tcp").
func startDiscovery(port int, service, instance string, log *slog.Logger) (*discoveryServer, error) {
	if instance == "" {
		h, err := os.Hostname()
		if err != nil {
			h = "roon-extension-spotify"
		}
		instance = h
	}
	if service == "" {
		service = "_roon-extension-spotify._tcp"
	}

	svc, err := mdns.NewMDNSService(
		instance,
		service,
		"",
		"",
		port,
		nil,
		[]string{"path=/stream", "version=1"},
	)
	if err != nil {
		return nil, fmt.Errorf("host: mdns service: %w", err)
	}

	srv, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		return nil, fmt.Errorf("host: mdns server: %w", err)
	}

	log.Info("mdns advertising", "instance", instance, "service", service, "port", port)
	return &discoveryServer{server: srv}, nil
}

func (d *discoveryServer) shutdown(log *slog.Logger) {
	if d == nil || d.server == nil {
		return
	}
	_ = d.server.Shutdown()
	log.Info("mdns stopped")
}

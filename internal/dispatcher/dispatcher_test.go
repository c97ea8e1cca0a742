package dispatcher

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/johnnyslush/roon-extension-spotify/internal/catalog"
	"github.com/johnnyslush/roon-extension-spotify/internal/events"
	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
	"github.com/johnnyslush/roon-extension-spotify/internal/zone"
)

type fakeLoader struct{}

func (fakeLoader) Load(context.Context, trackid.ID, int64) (*catalog.LoadedTrack, error) {
	return &catalog.LoadedTrack{}, nil
}

type eventSink struct {
	mu     sync.Mutex
	events []events.OutboundEvent
}

func (s *eventSink) callback(evt events.OutboundEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func newTestDispatcher(t *testing.T, logs *bytes.Buffer) (*Dispatcher, *eventSink) {
	t.Helper()
	sink := &eventSink{}
	var logger *slog.Logger
	if logs != nil {
		logger = slog.New(slog.NewTextHandler(logs, nil))
	}
	d := New(Config{Loader: fakeLoader{}, HostCallback: sink.callback, Logger: logger})
	go d.Run()
	t.Cleanup(d.Stop)
	return d, sink
}

func TestEnableZoneThenTrackInfoRequestBusyWhenNoTrackLoaded(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	d.SendControllerMessage(events.ControllerMessage{Type: events.MsgEnableZone, ZoneID: "A", ZoneName: "Kitchen"})
	time.Sleep(10 * time.Millisecond)

	reply := make(chan zone.TrackInfoReply, 1)
	d.SendQuery(TrackInfoRequest{ZoneID: "A", TrackID: trackid.New("t1"), Reply: reply})

	select {
	case resp := <-reply:
		if resp.NotFound {
			t.Fatal("expected the zone to be found")
		}
		if !resp.Busy {
			t.Fatal("expected Busy: a freshly enabled zone has no loaded track")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a reply")
	}
}

func TestTrackInfoRequestNotFoundForUnknownZone(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	reply := make(chan zone.TrackInfoReply, 1)
	d.SendQuery(TrackInfoRequest{ZoneID: "ghost", TrackID: trackid.New("t1"), Reply: reply})

	select {
	case resp := <-reply:
		if !resp.NotFound {
			t.Fatal("expected NotFound for an unknown zone")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a reply")
	}
}

func TestEnableZoneIgnoresDuplicate(t *testing.T) {
	var logs bytes.Buffer
	d, _ := newTestDispatcher(t, &logs)
	d.SendControllerMessage(events.ControllerMessage{Type: events.MsgEnableZone, ZoneID: "A", ZoneName: "Kitchen"})
	time.Sleep(10 * time.Millisecond)
	d.SendControllerMessage(events.ControllerMessage{Type: events.MsgEnableZone, ZoneID: "A", ZoneName: "Different"})
	time.Sleep(10 * time.Millisecond)

	if !strings.Contains(logs.String(), "ignoring EnableZone") {
		t.Fatalf("expected a log line about ignoring the duplicate EnableZone, got: %s", logs.String())
	}
}

func TestDisableZoneMakesZoneUnroutable(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	d.SendControllerMessage(events.ControllerMessage{Type: events.MsgEnableZone, ZoneID: "A", ZoneName: "Kitchen"})
	time.Sleep(10 * time.Millisecond)

	d.SendControllerMessage(events.ControllerMessage{Type: events.MsgDisableZone, ZoneID: "A"})
	time.Sleep(10 * time.Millisecond)

	reply := make(chan zone.TrackInfoReply, 1)
	d.SendQuery(TrackInfoRequest{ZoneID: "A", TrackID: trackid.New("t1"), Reply: reply})

	select {
	case resp := <-reply:
		if !resp.NotFound {
			t.Fatal("expected NotFound after DisableZone")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a reply")
	}
}

func TestDisableZoneForUnknownZoneLogsAndDoesNotPanic(t *testing.T) {
	var logs bytes.Buffer
	d, _ := newTestDispatcher(t, &logs)
	d.SendControllerMessage(events.ControllerMessage{Type: events.MsgDisableZone, ZoneID: "ghost"})
	time.Sleep(10 * time.Millisecond)

	if !strings.Contains(logs.String(), "DisableZone for unknown zone") {
		t.Fatalf("expected a warning about the unknown zone, got: %s", logs.String())
	}
}

func TestControllerMessageForUnknownZoneIsDropped(t *testing.T) {
	var logs bytes.Buffer
	d, _ := newTestDispatcher(t, &logs)
	d.SendControllerMessage(events.ControllerMessage{Type: events.MsgPlaying, ZoneID: "ghost"})
	time.Sleep(10 * time.Millisecond)

	if !strings.Contains(logs.String(), "dropping controller message for unknown zone") {
		t.Fatalf("expected a warning about the dropped message, got: %s", logs.String())
	}
}

func TestZoneListRequestReturnsEnabledZones(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	d.SendControllerMessage(events.ControllerMessage{Type: events.MsgEnableZone, ZoneID: "A", ZoneName: "Kitchen"})
	d.SendControllerMessage(events.ControllerMessage{Type: events.MsgEnableZone, ZoneID: "B", ZoneName: "Bedroom"})
	time.Sleep(10 * time.Millisecond)

	reply := make(chan []string, 1)
	d.SendQuery(ZoneListRequest{Reply: reply})

	select {
	case ids := <-reply:
		if len(ids) != 2 {
			t.Fatalf("expected 2 zone ids, got %v", ids)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a reply")
	}
}

func TestZoneListRequestEmptyWhenNoZones(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	reply := make(chan []string, 1)
	d.SendQuery(ZoneListRequest{Reply: reply})

	select {
	case ids := <-reply:
		if len(ids) != 0 {
			t.Fatalf("expected no zone ids, got %v", ids)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a reply")
	}
}

func TestStopReturnsPromptly(t *testing.T) {
	d := New(Config{Loader: fakeLoader{}})
	go d.Run()
	d.SendControllerMessage(events.ControllerMessage{Type: events.MsgEnableZone, ZoneID: "A", ZoneName: "Kitchen"})
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Stop to return promptly")
	}
}

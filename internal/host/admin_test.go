package host

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/johnnyslush/roon-extension-spotify/internal/catalog"
	"github.com/johnnyslush/roon-extension-spotify/internal/events"
	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
)

type fakeLoader struct{}

func (fakeLoader) Load(context.Context, trackid.ID, int64) (*catalog.LoadedTrack, error) {
	return &catalog.LoadedTrack{}, nil
}

func newTestHost(t *testing.T) *Host {
	t.Helper()
	h := New(Config{Loader: fakeLoader{}})
	go h.disp.Run()
	t.Cleanup(h.disp.Stop)
	return h
}

func TestAdminControllerMessageRejectsInvalidJSON(t *testing.T) {
	h := newTestHost(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/controller-message", bytes.NewBufferString("not json"))
	rr := httptest.NewRecorder()
	h.adminControllerMessage(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAdminControllerMessageAcceptsValidMessage(t *testing.T) {
	h := newTestHost(t)

	msg := events.ControllerMessage{Type: events.MsgEnableZone, ZoneID: "A", ZoneName: "Kitchen"}
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/controller-message", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.adminControllerMessage(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
}

func TestAdminStatusReportsUnknownForNeverSeenZone(t *testing.T) {
	h := newTestHost(t)
	h.disp.SendControllerMessage(events.ControllerMessage{Type: events.MsgEnableZone, ZoneID: "A", ZoneName: "Kitchen"})
	time.Sleep(10 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	rr := httptest.NewRecorder()
	h.adminStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp adminStatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Zones) != 1 || resp.Zones[0].State != "unknown" {
		t.Fatalf("expected one zone reported unknown, got %+v", resp.Zones)
	}
}

func TestAdminStatusIgnoresAppliedSnapshotWithoutRedis(t *testing.T) {
	h := newTestHost(t)
	h.disp.SendControllerMessage(events.ControllerMessage{Type: events.MsgEnableZone, ZoneID: "A", ZoneName: "Kitchen"})
	time.Sleep(10 * time.Millisecond)

	h.snapshots.Apply(context.Background(), events.OutboundEvent{
		Type:       events.EvtPlay,
		ZoneID:     "A",
		PositionMs: 1000,
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	rr := httptest.NewRecorder()
	h.adminStatus(rr, req)

	var resp adminStatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	// Without a configured redis client, Apply is a no-op, so even a
	// playing zone still reports unknown — this documents that
	// degradation rather than assuming redis is present in tests.
	if len(resp.Zones) != 1 || resp.Zones[0].State != "unknown" {
		t.Fatalf("expected one zone reported unknown, got %+v", resp.Zones)
	}
}

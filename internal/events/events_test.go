package events

import (
	"encoding/json"
	"testing"
)

func TestDeviceID(t *testing.T) {
	// A SHA-1 hex digest: 40 chars, stable, distinct per zone id.
	got := DeviceID("Kitchen")
	if len(got) != 40 {
		t.Fatalf("DeviceID length = %d, want 40 hex chars", len(got))
	}
	if got != DeviceID("Kitchen") {
		t.Errorf("DeviceID not stable across calls")
	}
	if DeviceID("Kitchen") == DeviceID("Office") {
		t.Errorf("DeviceID collided for distinct zone ids")
	}
}

func TestControllerMessageRoundTrip(t *testing.T) {
	cases := []ControllerMessage{
		{Type: MsgEnableZone, ZoneID: "A", ZoneName: "Kitchen"},
		{Type: MsgDisableZone, ZoneID: "A"},
		{Type: MsgPlaying, ZoneID: "A"},
		{Type: MsgTime, ZoneID: "A", SeekPositionMs: 12345, TrackID: "spotify:track:x"},
		{Type: MsgVolume, ZoneID: "A", Volume: 0.5},
	}
	for _, want := range cases {
		t.Run(string(want.Type), func(t *testing.T) {
			data, err := json.Marshal(want)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var got ControllerMessage
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if got != want {
				t.Errorf("round trip = %+v, want %+v", got, want)
			}
		})
	}
}

func TestControllerMessageUnknownType(t *testing.T) {
	var m ControllerMessage
	err := json.Unmarshal([]byte(`{"type":"Bogus","id":"A"}`), &m)
	if err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestOutboundEventPlayRoundTrip(t *testing.T) {
	preloadID := uint64(7)
	want := OutboundEvent{
		Type:   EvtPlay,
		ZoneID: "A",
		NowPlaying: &NowPlayingInfo{
			TrackID: "spotify:track:t1",
			Name:    "Song",
		},
		PositionMs:    0,
		PlayRequestID: 1,
		PreloadID:     &preloadID,
	}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got OutboundEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Type != want.Type || got.ZoneID != want.ZoneID || got.PlayRequestID != want.PlayRequestID {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, want)
	}
	if got.PreloadID == nil || *got.PreloadID != preloadID {
		t.Errorf("PreloadID = %v, want %d", got.PreloadID, preloadID)
	}
	if got.NowPlaying == nil || got.NowPlaying.TrackID != want.NowPlaying.TrackID {
		t.Errorf("NowPlaying mismatch: %+v", got.NowPlaying)
	}
}

func TestOutboundEventPlayOmitsNilPreloadID(t *testing.T) {
	e := OutboundEvent{Type: EvtPlay, ZoneID: "A", NowPlaying: &NowPlayingInfo{TrackID: "t"}, PlayRequestID: 1}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw: %v", err)
	}
	if _, present := raw["preload_id"]; present {
		t.Errorf("expected preload_id to be omitted when nil, got %v", raw["preload_id"])
	}
}

func TestOutboundEventStopMinimal(t *testing.T) {
	e := OutboundEvent{Type: EvtStop, ZoneID: "A"}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got OutboundEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Type != EvtStop || got.ZoneID != "A" {
		t.Errorf("got %+v", got)
	}
}

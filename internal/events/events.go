// Package events defines the JSON wire protocol exchanged between the
// dispatcher and the controller, plus the now-playing metadata snapshot
// carried on several events.
//
// Both message unions are encoded with a discriminant "type" field
// alongside the variant's own fields, so this package hand-rolls
// MarshalJSON/UnmarshalJSON instead of relying on encoding/json's
// default struct tags.
package events

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DeviceID derives the streaming-service device identity for a zone:
// hex(SHA1(zone_id)).
func DeviceID(zoneID string) string {
	sum := sha1.Sum([]byte(zoneID))
	return hex.EncodeToString(sum[:])
}

// NowPlayingInfo is the immutable metadata snapshot handed to the
// controller at play/preload time.
type NowPlayingInfo struct {
	TrackID   string   `json:"track_id"`
	Name      string   `json:"name"`
	AlbumName string   `json:"album_name,omitempty"`
	Artists   []string `json:"artists,omitempty"`
	// Covers holds hex-encoded image digests.
	Covers   []string `json:"covers,omitempty"`
	ShowName string   `json:"show_name,omitempty"`
}

// ControllerMessageType enumerates the inbound controller→bridge message
// variants.
type ControllerMessageType string

const (
	MsgEnableZone     ControllerMessageType = "EnableZone"
	MsgDisableZone    ControllerMessageType = "DisableZone"
	MsgPlaying        ControllerMessageType = "Playing"
	MsgPaused         ControllerMessageType = "Paused"
	MsgUnpaused       ControllerMessageType = "Unpaused"
	MsgSeeked         ControllerMessageType = "Seeked"
	MsgTime           ControllerMessageType = "Time"
	MsgNextTrack      ControllerMessageType = "NextTrack"
	MsgPreviousTrack  ControllerMessageType = "PreviousTrack"
	MsgStopped        ControllerMessageType = "Stopped"
	MsgEndedNaturally ControllerMessageType = "EndedNaturally"
	MsgOnToNext       ControllerMessageType = "OnToNext"
	MsgError          ControllerMessageType = "Error"
	MsgVolume         ControllerMessageType = "Volume"
)

// ControllerMessage is the inbound tagged union. Only the fields
// relevant to Type are populated; the rest are zero.
type ControllerMessage struct {
	Type ControllerMessageType

	// EnableZone
	ZoneName string

	// common to every other variant
	ZoneID string

	// Time
	SeekPositionMs int64
	TrackID        string

	// Volume
	Volume float64
}

type controllerMessageWire struct {
	Type           ControllerMessageType `json:"type"`
	ID             string                `json:"id,omitempty"`
	Name           string                `json:"name,omitempty"`
	SeekPositionMs *int64                `json:"seek_position_ms,omitempty"`
	TrackID        *string               `json:"track_id,omitempty"`
	Volume         *float64              `json:"volume,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m ControllerMessage) MarshalJSON() ([]byte, error) {
	w := controllerMessageWire{Type: m.Type, ID: m.ZoneID}
	switch m.Type {
	case MsgEnableZone:
		w.Name = m.ZoneName
	case MsgTime:
		v := m.SeekPositionMs
		w.SeekPositionMs = &v
		t := m.TrackID
		w.TrackID = &t
	case MsgVolume:
		v := m.Volume
		w.Volume = &v
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *ControllerMessage) UnmarshalJSON(data []byte) error {
	var w controllerMessageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = ControllerMessage{Type: w.Type, ZoneID: w.ID, ZoneName: w.Name}
	if w.SeekPositionMs != nil {
		m.SeekPositionMs = *w.SeekPositionMs
	}
	if w.TrackID != nil {
		m.TrackID = *w.TrackID
	}
	if w.Volume != nil {
		m.Volume = *w.Volume
	}
	switch w.Type {
	case MsgEnableZone, MsgDisableZone, MsgPlaying, MsgPaused, MsgUnpaused,
		MsgSeeked, MsgTime, MsgNextTrack, MsgPreviousTrack, MsgStopped,
		MsgEndedNaturally, MsgOnToNext, MsgError, MsgVolume:
		return nil
	default:
		return fmt.Errorf("events: unknown controller message type %q", w.Type)
	}
}

// OutboundEventType enumerates the bridge→controller (and, via the host
// callback, bridge→embedder) event variants.
type OutboundEventType string

const (
	EvtPlay      OutboundEventType = "Play"
	EvtUnpause   OutboundEventType = "Unpause"
	EvtPause     OutboundEventType = "Pause"
	EvtSeek      OutboundEventType = "Seek"
	EvtStop      OutboundEventType = "Stop"
	EvtPreload   OutboundEventType = "Preload"
	EvtClear     OutboundEventType = "Clear"
	EvtVolumeSet OutboundEventType = "VolumeSet"
)

// OutboundEvent is the outbound tagged union pushed to the controller.
type OutboundEvent struct {
	Type   OutboundEventType
	ZoneID string

	// Play / Preload
	NowPlaying *NowPlayingInfo

	// Play
	PositionMs    int64
	PlayRequestID uint64
	PreloadID     *uint64 // nil when no preload correlates to this Play

	// Seek
	SeekPositionMs int64

	// Clear
	Slots []string

	// VolumeSet
	Volume float64
}

type outboundEventWire struct {
	Type           OutboundEventType `json:"type"`
	ZoneID         string            `json:"zone_id"`
	NowPlaying     *NowPlayingInfo   `json:"now_playing_info,omitempty"`
	PositionMs     *int64            `json:"position_ms,omitempty"`
	PlayRequestID  *uint64           `json:"play_request_id,omitempty"`
	PreloadID      *uint64           `json:"preload_id,omitempty"`
	SeekPositionMs *int64            `json:"seek_position_ms,omitempty"`
	Slots          []string          `json:"slots,omitempty"`
	Volume         *float64          `json:"volume,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e OutboundEvent) MarshalJSON() ([]byte, error) {
	w := outboundEventWire{Type: e.Type, ZoneID: e.ZoneID}
	switch e.Type {
	case EvtPlay:
		w.NowPlaying = e.NowPlaying
		pos := e.PositionMs
		w.PositionMs = &pos
		prid := e.PlayRequestID
		w.PlayRequestID = &prid
		w.PreloadID = e.PreloadID
	case EvtPreload:
		w.NowPlaying = e.NowPlaying
	case EvtSeek:
		pos := e.SeekPositionMs
		w.SeekPositionMs = &pos
	case EvtClear:
		w.Slots = e.Slots
	case EvtVolumeSet:
		v := e.Volume
		w.Volume = &v
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *OutboundEvent) UnmarshalJSON(data []byte) error {
	var w outboundEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = OutboundEvent{Type: w.Type, ZoneID: w.ZoneID, NowPlaying: w.NowPlaying, Slots: w.Slots}
	if w.PositionMs != nil {
		e.PositionMs = *w.PositionMs
	}
	if w.PlayRequestID != nil {
		e.PlayRequestID = *w.PlayRequestID
	}
	e.PreloadID = w.PreloadID
	if w.SeekPositionMs != nil {
		e.SeekPositionMs = *w.SeekPositionMs
	}
	if w.Volume != nil {
		e.Volume = *w.Volume
	}
	return nil
}

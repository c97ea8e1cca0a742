package host

import (
	"io"
	"net/http"

	"github.com/johnnyslush/roon-extension-spotify/internal/dispatcher"
	"github.com/johnnyslush/roon-extension-spotify/internal/events"
)

const maxControllerMessageBytes = 64 * 1024

// adminControllerMessage accepts a single JSON-encoded controller
// message in the request body and enqueues it onto the dispatcher —
// the network equivalent of SendControllerMessage, for an embedder
// that talks to this process over HTTP rather than linking it
// in-process.
func (h *Host) adminControllerMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxControllerMessageBytes))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "reading body")
		return
	}
	if err := h.SendControllerMessage(body); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type adminStatusResponse struct {
	Zones []zoneStatus `json:"zones"`
}

type zoneStatus struct {
	ZoneID     string  `json:"zone_id"`
	DeviceID   string  `json:"device_id"`
	State      string  `json:"state"`
	PositionMs int64   `json:"position_ms"`
	TrackID    *string `json:"track_id,omitempty"`
}

// adminStatus reports every enabled zone's last cached snapshot —
// "unknown" for a zone that has never produced an outbound event yet.
func (h *Host) adminStatus(w http.ResponseWriter, r *http.Request) {
	reply := make(chan []string, 1)
	h.disp.SendQuery(dispatcher.ZoneListRequest{Reply: reply})
	zoneIDs := <-reply

	snaps := h.snapshots.All(r.Context(), zoneIDs)
	byZone := make(map[string]zoneStatus, len(snaps))
	for _, s := range snaps {
		st := zoneStatus{ZoneID: s.ZoneID, DeviceID: events.DeviceID(s.ZoneID), State: s.State, PositionMs: s.PositionMs}
		if s.NowPlaying != nil {
			id := s.NowPlaying.TrackID
			st.TrackID = &id
		}
		byZone[s.ZoneID] = st
	}

	resp := adminStatusResponse{Zones: make([]zoneStatus, 0, len(zoneIDs))}
	for _, id := range zoneIDs {
		if st, ok := byZone[id]; ok {
			resp.Zones = append(resp.Zones, st)
			continue
		}
		resp.Zones = append(resp.Zones, zoneStatus{ZoneID: id, DeviceID: events.DeviceID(id), State: "unknown"})
	}

	writeJSON(w, http.StatusOK, resp)
}

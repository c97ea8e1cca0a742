package dispatcher

import (
	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
	"github.com/johnnyslush/roon-extension-spotify/internal/zone"
)

// TrackInfoRequest asks the dispatcher for size/identity info about a
// track from a specific zone.
type TrackInfoRequest struct {
	ZoneID  string
	TrackID trackid.ID
	Reply   chan<- zone.TrackInfoReply
}

// TrackReadRequest asks the dispatcher to read a chunk of a track from
// a specific zone.
type TrackReadRequest struct {
	ZoneID  string
	TrackID trackid.ID
	Start   int64
	End     int64
	Buffer  []byte
	Reply   chan<- zone.TrackReadReply
}

// ZoneListRequest asks the dispatcher for the set of currently-enabled
// zone ids. Used by the admin status endpoint; answering it requires
// no zone round trip since zone membership is the dispatcher's own
// single-writer state.
type ZoneListRequest struct {
	Reply chan<- []string
}

func (d *Dispatcher) handleQuery(q any) {
	switch req := q.(type) {
	case TrackInfoRequest:
		d.handleTrackInfoRequest(req)
	case TrackReadRequest:
		d.handleTrackReadRequest(req)
	case ZoneListRequest:
		d.handleZoneListRequest(req)
	}
}

func (d *Dispatcher) handleZoneListRequest(req ZoneListRequest) {
	ids := make([]string, 0, len(d.zones))
	for id := range d.zones {
		ids = append(ids, id)
	}
	req.Reply <- ids
}

func (d *Dispatcher) handleTrackInfoRequest(req TrackInfoRequest) {
	zh, ok := d.zones[req.ZoneID]
	if !ok {
		req.Reply <- zone.TrackInfoReply{NotFound: true}
		return
	}
	zh.z.SendQuery(zone.TrackInfoQuery{TrackID: req.TrackID, Reply: req.Reply})
}

func (d *Dispatcher) handleTrackReadRequest(req TrackReadRequest) {
	zh, ok := d.zones[req.ZoneID]
	if !ok {
		req.Reply <- zone.TrackReadReply{NotFound: true}
		return
	}
	zh.z.SendQuery(zone.TrackReadQuery{
		TrackID: req.TrackID,
		Start:   req.Start,
		End:     req.End,
		Buffer:  req.Buffer,
		Reply:   req.Reply,
	})
}

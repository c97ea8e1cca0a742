package zone

import (
	"io"

	"github.com/johnnyslush/roon-extension-spotify/internal/catalog"
	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
)

// handleQuery answers an HTTP range-server query against whichever of
// the zone's current or preloaded tracks matches the requested track
// id. Neither matching replies Busy, which the range server turns into
// a 404.
func (z *Zone) handleQuery(q any) {
	switch query := q.(type) {
	case TrackInfoQuery:
		z.handleTrackInfoQuery(query)
	case TrackReadQuery:
		z.handleTrackReadQuery(query)
	}
}

func (z *Zone) handleTrackInfoQuery(q TrackInfoQuery) {
	track := z.matchingTrack(q.TrackID)
	if track == nil {
		q.Reply <- TrackInfoReply{Busy: true}
		return
	}
	size, err := track.Stream.Seek(0, io.SeekEnd)
	if err != nil {
		q.Reply <- TrackInfoReply{Busy: true}
		return
	}
	q.Reply <- TrackInfoReply{FileSize: size, TrackID: q.TrackID}
}

func (z *Zone) handleTrackReadQuery(q TrackReadQuery) {
	track := z.matchingTrack(q.TrackID)
	if track == nil {
		q.Reply <- TrackReadReply{Busy: true}
		return
	}
	if _, err := track.Stream.Seek(q.Start, io.SeekStart); err != nil {
		q.Reply <- TrackReadReply{Busy: true}
		return
	}
	buf := q.Buffer
	if len(buf) > ReadChunkSize {
		buf = buf[:ReadChunkSize]
	}
	n, err := track.Stream.Read(buf)
	if err != nil && err != io.EOF {
		q.Reply <- TrackReadReply{Busy: true}
		return
	}
	q.Reply <- TrackReadReply{ReadLen: n}
}

// matchingTrack returns whichever of the zone's current or preloaded
// track matches id, or nil if neither does.
func (z *Zone) matchingTrack(id trackid.ID) *catalog.LoadedTrack {
	if z.state.matchesTrack(id) {
		return z.state.Track
	}
	if z.preload.matchesTrack(id) {
		return z.preload.Track
	}
	return nil
}

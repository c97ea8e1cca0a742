package zone

import "github.com/johnnyslush/roon-extension-spotify/internal/trackid"

// ReadChunkSize is the fixed chunk length used for every TrackRead.
// End is accepted but unused, so a read is capped at 32 KiB
// regardless of what End a caller asks for.
const ReadChunkSize = 32 * 1024

// TrackInfoQuery asks the zone for the size and canonical id of
// whichever of its current or preloaded tracks matches TrackID.
type TrackInfoQuery struct {
	TrackID trackid.ID
	Reply   chan<- TrackInfoReply
}

// TrackInfoReply answers a TrackInfoQuery.
type TrackInfoReply struct {
	FileSize int64
	TrackID  trackid.ID
	// Busy reports that the zone has no current or preloaded track
	// matching the query.
	Busy bool
	// NotFound is set by the dispatcher, never by the zone itself, when
	// no zone with the requested id exists at all.
	NotFound bool
}

// TrackReadQuery asks the zone to read up to len(Buffer) bytes (capped
// to ReadChunkSize) at Start from whichever track matches TrackID.
// End is accepted and ignored.
type TrackReadQuery struct {
	TrackID trackid.ID
	Start   int64
	End     int64
	Buffer  []byte
	Reply   chan<- TrackReadReply
}

// TrackReadReply answers a TrackReadQuery.
type TrackReadReply struct {
	ReadLen int
	Busy    bool
	// NotFound is set by the dispatcher when no zone with the requested
	// id exists at all.
	NotFound bool
}

package zone

import "github.com/johnnyslush/roon-extension-spotify/internal/trackid"

// ServiceCommandKind enumerates the service-side (streaming-service
// client) commands a zone accepts.
type ServiceCommandKind int

const (
	CmdLoad ServiceCommandKind = iota
	CmdPlay
	CmdPause
	CmdStop
	CmdSeek
	CmdPreload
	CmdEmitVolumeSet
)

// ServiceCommand is the tagged union of service-side commands.
type ServiceCommand struct {
	Kind ServiceCommandKind

	// Load
	TrackID       trackid.ID
	PlayRequestID uint64
	StartPlayback bool
	PositionMs    int64

	// EmitVolumeSet
	Volume float64
}

// ServiceEventKind enumerates the events pushed back to the
// streaming-service client.
type ServiceEventKind int

const (
	SvcLoading ServiceEventKind = iota
	SvcPlaying
	SvcPaused
	SvcStopped
	SvcTimeToPreloadNextTrack
	SvcEndOfTrack
	SvcPrev
	SvcVolumeSet
)

// ServiceEvent is the tagged union of events emitted toward the
// streaming-service client. The streaming-service session itself is an
// external collaborator owned elsewhere; this package only produces
// the event stream, it does not transport it.
type ServiceEvent struct {
	Kind          ServiceEventKind
	TrackID       trackid.ID
	PlayRequestID uint64
	PositionMs    int64
	DurationMs    int64
	Volume        float64
}

// Package catalog implements the Track Loader: given a track id and a
// start offset, it produces a LoadedTrack — a seekable decrypted byte
// source plus immutable metadata.
package catalog

import (
	"errors"
	"io"

	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
)

// FileFormat names an encoding plus a nominal bitrate. Only the
// formats this bridge can plausibly receive from a catalog service are
// modeled.
type FileFormat string

const (
	FormatOggVorbis96  FileFormat = "OGG_VORBIS_96"
	FormatOggVorbis160 FileFormat = "OGG_VORBIS_160"
	FormatOggVorbis320 FileFormat = "OGG_VORBIS_320"
)

// AudioItem is the metadata record fetched for a track id, including
// its available file assets and, if unavailable itself, alternative
// track ids to probe.
type AudioItem struct {
	ID           trackid.ID
	Name         string
	DurationMs   int64
	Available    bool
	Alternatives []trackid.ID
	Files        map[FileFormat]string // format -> file_id
	Album        string
	Artists      []string
	Covers       []string
	Show         string
}

// AudioMetadata is the immutable snapshot carried on a LoadedTrack.
type AudioMetadata struct {
	ID         trackid.ID
	Name       string
	DurationMs int64
	Album      string
	Artists    []string
	Covers     []string
	Show       string
}

// LoadedTrack owns a seekable, already-decrypted byte source positioned
// so byte 0 corresponds to byte 0 of the audio payload, plus its
// metadata and requested start position.
type LoadedTrack struct {
	Stream          io.ReadSeekCloser
	Metadata        AudioMetadata
	StartPositionMs int64
}

// Close releases the underlying byte source.
func (t *LoadedTrack) Close() error {
	if t == nil || t.Stream == nil {
		return nil
	}
	return t.Stream.Close()
}

var (
	// ErrUnavailable covers every Track-unavailable failure mode: no
	// alternative found, no supported format, negative duration, or key
	// denied.
	ErrUnavailable = errors.New("catalog: track unavailable")
)

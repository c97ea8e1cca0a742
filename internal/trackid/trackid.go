// Package trackid implements the opaque streaming-service track
// identifier: a value-comparable id that round-trips to/from a
// "spotify:track:..." or "spotify:episode:..." URI. This module has no
// dependency on the actual streaming service, so the identifier is
// kept deliberately generic: any string safe to use as a Postgres
// primary key and a JSON scalar.
package trackid

import (
	"errors"
	"strings"
)

// ErrInvalidURI is returned when a URI does not have the expected
// "<scheme>:track:<id>" or "<scheme>:episode:<id>" shape.
var ErrInvalidURI = errors.New("trackid: invalid uri")

const (
	defaultScheme = "spotify"

	kindTrack   = "track"
	kindEpisode = "episode"
)

// ID is an opaque, value-comparable track identifier. The zero value is
// not a valid ID.
type ID struct {
	scheme string
	kind   string
	raw    string
}

// New wraps a raw catalog id (no scheme, no "track:" prefix) into a
// track ID.
func New(raw string) ID {
	return ID{scheme: defaultScheme, kind: kindTrack, raw: raw}
}

// NewEpisode wraps a raw catalog id into a podcast-episode ID. Episodes
// round-trip with an "episode" URI segment but otherwise behave
// identically to tracks.
func NewEpisode(raw string) ID {
	return ID{scheme: defaultScheme, kind: kindEpisode, raw: raw}
}

// Parse decodes a URI of the form "spotify:track:<raw>" or
// "spotify:episode:<raw>" into an ID.
func Parse(uri string) (ID, error) {
	parts := strings.SplitN(uri, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" ||
		(parts[1] != kindTrack && parts[1] != kindEpisode) {
		return ID{}, ErrInvalidURI
	}
	return ID{scheme: parts[0], kind: parts[1], raw: parts[2]}, nil
}

// URI renders the canonical "<scheme>:<kind>:<raw>" form.
func (i ID) URI() string {
	if i.IsZero() {
		return ""
	}
	return i.scheme + ":" + i.kind + ":" + i.raw
}

// Raw returns the catalog id without scheme or "track:" decoration —
// this is the value used as the database primary key.
func (i ID) Raw() string { return i.raw }

// IsZero reports whether i is the zero value.
func (i ID) IsZero() bool { return i.raw == "" }

// Equal compares two IDs by value, ignoring scheme so a bare New() id
// and a Parse()d URI for the same raw id compare equal.
func (i ID) Equal(other ID) bool { return i.raw == other.raw }

// String implements fmt.Stringer for logging.
func (i ID) String() string { return i.URI() }

// MarshalText implements encoding.TextMarshaler so an ID serializes as its
// URI form in JSON.
func (i ID) MarshalText() ([]byte, error) { return []byte(i.URI()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

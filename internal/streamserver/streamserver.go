// Package streamserver implements the single process-wide HTTP range
// server: GET /stream/{zone_id}/{track_id}, optionally ranged,
// streaming decrypted audio bytes out of whichever zone holds a
// matching current or preloaded track.
//
// The server holds no file handle or object-store reference of its
// own: every byte read is a message round trip to the dispatcher,
// which forwards to the owning zone.
package streamserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/johnnyslush/roon-extension-spotify/internal/dispatcher"
	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
	"github.com/johnnyslush/roon-extension-spotify/internal/zone"
)

// readChunkSize mirrors zone.ReadChunkSize: every pull through the
// dispatcher asks for at most this many bytes, regardless of how much
// of the remaining body the client could still accept.
const readChunkSize = zone.ReadChunkSize

// errTrackUnavailable is returned internally when the dispatcher
// reports Busy or NotFound; the handler turns both into a 404.
var errTrackUnavailable = errors.New("streamserver: zone or track unavailable")

// Querier is the subset of *dispatcher.Dispatcher the range server
// depends on, narrowed so tests can substitute a fake dispatcher.
type Querier interface {
	SendQuery(q any)
}

// Server is the HTTP range server. It is stateless beyond its
// dispatcher handle; every request is independent.
type Server struct {
	log *slog.Logger
	d   Querier
}

// New builds a Server.
func New(d Querier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{d: d, log: logger}
}

// Routes registers the range server's routes on r.
func (s *Server) Routes(r chi.Router) {
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/hello", s.hello)
	r.Get("/stream/{zone_id}/{track_id}", s.stream)
}

// Router builds a standalone chi.Mux with this server's routes, for
// callers (tests, or a host that wants the range server on its own
// listener) that don't need to share a mux with anything else.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

func (s *Server) hello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "hello\n")
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	zoneID := chi.URLParam(r, "zone_id")
	rawTrackID := chi.URLParam(r, "track_id")
	if rawTrackID == "" {
		http.Error(w, "invalid track id", http.StatusBadRequest)
		return
	}

	tid, err := trackid.Parse(rawTrackID)
	if err != nil {
		tid = trackid.New(rawTrackID)
	}

	offset, err := parseOffset(r.Header.Get("Range"))
	if err != nil {
		http.Error(w, "invalid range", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	info, err := s.trackInfo(r.Context(), zoneID, tid)
	if err != nil {
		s.log.Info("stream request for unavailable track",
			"request_id", middleware.GetReqID(r.Context()), "zone_id", zoneID, "track_id", rawTrackID, "err", err)
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if offset < 0 || offset > info.FileSize {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", info.FileSize))
		http.Error(w, "invalid range", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	contentLength := info.FileSize - offset

	w.Header().Set("Content-Type", "audio/ogg")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Encoding", "identity")
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, info.FileSize-1, info.FileSize))
	w.Header().Set("Content-Length", strconv.FormatInt(contentLength, 10))

	status := http.StatusOK
	if offset != 0 {
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}

	body := &trackBody{
		ctx:     r.Context(),
		d:       s.d,
		zoneID:  zoneID,
		trackID: info.TrackID,
		pos:     offset,
		limit:   info.FileSize,
	}
	buf := make([]byte, readChunkSize)
	_, _ = io.CopyBuffer(w, body, buf)
}

// trackInfo asks the dispatcher for size/identity info about a track,
// collapsing both Busy and NotFound dispatcher replies into one error
// since both map to a 404 at the HTTP layer.
func (s *Server) trackInfo(ctx context.Context, zoneID string, tid trackid.ID) (zone.TrackInfoReply, error) {
	reply := make(chan zone.TrackInfoReply, 1)
	s.d.SendQuery(dispatcher.TrackInfoRequest{
		ZoneID:  zoneID,
		TrackID: tid,
		Reply:   reply,
	})
	info := <-reply
	if info.Busy || info.NotFound {
		return zone.TrackInfoReply{}, errTrackUnavailable
	}
	return info, nil
}

// trackBody is a lazy io.Reader pulling 32 KiB chunks through the
// dispatcher/zone on every Read call. It ends once cumulative bytes
// read reach the requested file-size/offset window.
type trackBody struct {
	ctx     context.Context
	d       Querier
	zoneID  string
	trackID trackid.ID
	pos     int64
	limit   int64
}

func (b *trackBody) Read(p []byte) (int, error) {
	if b.pos >= b.limit {
		return 0, io.EOF
	}
	want := int64(len(p))
	if want > readChunkSize {
		want = readChunkSize
	}
	if b.pos+want > b.limit {
		want = b.limit - b.pos
	}

	reply := make(chan zone.TrackReadReply, 1)
	buf := p[:want]
	b.d.SendQuery(dispatcher.TrackReadRequest{
		ZoneID:  b.zoneID,
		TrackID: b.trackID,
		Start:   b.pos,
		End:     b.pos + readChunkSize,
		Buffer:  buf,
		Reply:   reply,
	})

	select {
	case <-b.ctx.Done():
		return 0, b.ctx.Err()
	case res := <-reply:
		if res.Busy || res.NotFound {
			return 0, fmt.Errorf("%w: zone=%s track=%s", errTrackUnavailable, b.zoneID, b.trackID)
		}
		b.pos += int64(res.ReadLen)
		if res.ReadLen == 0 {
			return 0, io.EOF
		}
		return res.ReadLen, nil
	}
}

// parseOffset extracts the start offset from a Range header: only the
// first range is honored and only its start; an explicit end is
// accepted syntactically but ignored.
func parseOffset(rangeHeader string) (int64, error) {
	if rangeHeader == "" {
		return 0, nil
	}
	if !strings.HasPrefix(rangeHeader, "bytes=") {
		return 0, fmt.Errorf("streamserver: unsupported range unit in %q", rangeHeader)
	}
	spec := strings.TrimPrefix(rangeHeader, "bytes=")
	first := strings.SplitN(spec, ",", 2)[0]
	parts := strings.SplitN(first, "-", 2)
	if len(parts) != 2 || parts[0] == "" {
		// A suffix range (bytes=-N) has no meaningful "start" in this
		// server's model; the controller never issues one in practice,
		// so treat it as a full read from 0.
		return 0, nil
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 {
		return 0, fmt.Errorf("streamserver: invalid range start in %q", rangeHeader)
	}
	return start, nil
}

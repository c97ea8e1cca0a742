package streamserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/johnnyslush/roon-extension-spotify/internal/dispatcher"
	"github.com/johnnyslush/roon-extension-spotify/internal/zone"
)

// fakeDispatcher answers TrackInfoRequest/TrackReadRequest against a
// single in-memory byte slice, standing in for a real zone holding a
// loaded track.
type fakeDispatcher struct {
	data     []byte
	notFound bool
	busy     bool
}

func (f *fakeDispatcher) SendQuery(q any) {
	switch req := q.(type) {
	case dispatcher.TrackInfoRequest:
		switch {
		case f.notFound:
			req.Reply <- zone.TrackInfoReply{NotFound: true}
		case f.busy:
			req.Reply <- zone.TrackInfoReply{Busy: true}
		default:
			req.Reply <- zone.TrackInfoReply{FileSize: int64(len(f.data)), TrackID: req.TrackID}
		}
	case dispatcher.TrackReadRequest:
		if f.notFound || f.busy {
			req.Reply <- zone.TrackReadReply{NotFound: f.notFound, Busy: f.busy}
			return
		}
		end := req.End
		if end > int64(len(f.data)) {
			end = int64(len(f.data))
		}
		n := copy(req.Buffer, f.data[req.Start:end])
		req.Reply <- zone.TrackReadReply{ReadLen: n}
	}
}

func TestStreamFullBody(t *testing.T) {
	d := &fakeDispatcher{data: bytes.Repeat([]byte("a"), 100)}
	s := New(d, nil)

	req := httptest.NewRequest(http.MethodGet, "/stream/A/t1", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.Len() != 100 {
		t.Fatalf("expected 100 bytes, got %d", rr.Body.Len())
	}
	if rr.Header().Get("Accept-Ranges") != "bytes" {
		t.Fatal("expected Accept-Ranges: bytes")
	}
}

func TestStreamRangeRequest(t *testing.T) {
	d := &fakeDispatcher{data: bytes.Repeat([]byte("b"), 100)}
	s := New(d, nil)

	req := httptest.NewRequest(http.MethodGet, "/stream/A/t1", nil)
	req.Header.Set("Range", "bytes=50-")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rr.Code)
	}
	if rr.Body.Len() != 50 {
		t.Fatalf("expected 50 bytes, got %d", rr.Body.Len())
	}
	want := "bytes 50-99/100"
	if got := rr.Header().Get("Content-Range"); got != want {
		t.Fatalf("expected Content-Range %q, got %q", want, got)
	}
}

func TestStreamUnknownZoneReturns404(t *testing.T) {
	d := &fakeDispatcher{notFound: true}
	s := New(d, nil)

	req := httptest.NewRequest(http.MethodGet, "/stream/ghost/t1", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestStreamBusyZoneReturns404(t *testing.T) {
	d := &fakeDispatcher{busy: true}
	s := New(d, nil)

	req := httptest.NewRequest(http.MethodGet, "/stream/A/t1", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a busy zone, got %d", rr.Code)
	}
}

func TestStreamOutOfRangeOffsetReturns416(t *testing.T) {
	d := &fakeDispatcher{data: bytes.Repeat([]byte("c"), 10)}
	s := New(d, nil)

	req := httptest.NewRequest(http.MethodGet, "/stream/A/t1", nil)
	req.Header.Set("Range", "bytes=9999-")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("expected 416, got %d", rr.Code)
	}
}

func TestHelloEndpoint(t *testing.T) {
	s := New(&fakeDispatcher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "hello\n" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

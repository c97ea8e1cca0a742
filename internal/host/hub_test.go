package host

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestEventHubBroadcastsToConnectedClient(t *testing.T) {
	hub := newEventHub(slog.Default())
	go hub.run()
	t.Cleanup(hub.shutdown)

	srv := httptest.NewServer(http.HandlerFunc(hub.serveWS))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	time.Sleep(10 * time.Millisecond) // let the hub register the client
	hub.Publish([]byte(`{"type":"Play"}`))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading broadcast message: %v", err)
	}
	if string(msg) != `{"type":"Play"}` {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestEventHubPublishAfterShutdownDoesNotBlock(t *testing.T) {
	hub := newEventHub(slog.Default())
	go hub.run()
	hub.shutdown()
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		hub.Publish([]byte("x"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Publish to return promptly after shutdown")
	}
}

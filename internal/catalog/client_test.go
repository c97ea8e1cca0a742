package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
)

func TestClientGetAudioItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio-items/t1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(audioItemResponse{
			ID: "t1", Name: "Song", DurationMs: 1000, Available: true,
			Files: map[string]string{"OGG_VORBIS_160": "file-1"},
		})
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL: srv.URL, Timeout: 5 * time.Second, Retries: 0,
		RequestsPerSecond: 1000, BurstSize: 10,
	})

	item, err := client.GetAudioItem(context.Background(), trackid.New("t1"))
	if err != nil {
		t.Fatalf("GetAudioItem: %v", err)
	}
	if item.Name != "Song" || !item.Available {
		t.Errorf("got %+v", item)
	}
	if item.Files[FormatOggVorbis160] != "file-1" {
		t.Errorf("Files[160] = %q, want file-1", item.Files[FormatOggVorbis160])
	}
}

func TestClientGetAudioItemNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, RequestsPerSecond: 1000, BurstSize: 10})
	if _, err := client.GetAudioItem(context.Background(), trackid.New("missing")); err != ErrUnavailable {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestClientDecryptionKey(t *testing.T) {
	wantKey := []byte{1, 2, 3, 4}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(wantKey)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, RequestsPerSecond: 1000, BurstSize: 10})
	got, err := client.DecryptionKey(context.Background(), trackid.New("t1"), "file-1")
	if err != nil {
		t.Fatalf("DecryptionKey: %v", err)
	}
	if string(got) != string(wantKey) {
		t.Errorf("got %v, want %v", got, wantKey)
	}
}

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
)

// Client fetches audio item metadata and decryption keys from the
// catalog service. Requests retry transient failures and share an
// outbound rate limiter so a burst of concurrent alternative probes
// cannot hammer the upstream.
type Client struct {
	httpClient *retryablehttp.Client
	limiter    *rate.Limiter
	baseURL    string
	token      string
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	Retries           int
	RequestsPerSecond float64
	BurstSize         int
}

// NewClient builds a Client from cfg.
func NewClient(cfg ClientConfig) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.Retries
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil

	return &Client{
		httpClient: rc,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
	}
}

type audioItemResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	DurationMs   int64             `json:"duration_ms"`
	Available    bool              `json:"available"`
	Alternatives []string          `json:"alternatives"`
	Files        map[string]string `json:"files"`
	Album        string            `json:"album"`
	Artists      []string          `json:"artists"`
	Covers       []string          `json:"covers"`
	Show         string            `json:"show"`
}

// GetAudioItem fetches the metadata record for id. It does not resolve
// alternatives; callers probe those with FindAvailableAlternative.
func (c *Client) GetAudioItem(ctx context.Context, id trackid.ID) (AudioItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return AudioItem{}, fmt.Errorf("catalog: rate limiter: %w", err)
	}
	url := fmt.Sprintf("%s/audio-items/%s", c.baseURL, id.Raw())
	return c.fetch(ctx, url)
}

func (c *Client) fetch(ctx context.Context, url string) (AudioItem, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return AudioItem{}, fmt.Errorf("catalog: building request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AudioItem{}, fmt.Errorf("catalog: request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return AudioItem{}, ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return AudioItem{}, fmt.Errorf("catalog: unexpected status %d from %s: %s", resp.StatusCode, url, body)
	}

	var wire audioItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return AudioItem{}, fmt.Errorf("catalog: decoding response from %s: %w", url, err)
	}
	return toAudioItem(wire), nil
}

func toAudioItem(w audioItemResponse) AudioItem {
	files := make(map[FileFormat]string, len(w.Files))
	for format, fileID := range w.Files {
		files[FileFormat(format)] = fileID
	}
	alternatives := make([]trackid.ID, 0, len(w.Alternatives))
	for _, alt := range w.Alternatives {
		alternatives = append(alternatives, trackid.New(alt))
	}
	// Items carrying a show name are podcast episodes; their ids
	// round-trip with an "episode" URI segment.
	id := trackid.New(w.ID)
	if w.Show != "" {
		id = trackid.NewEpisode(w.ID)
	}
	return AudioItem{
		ID:           id,
		Name:         w.Name,
		DurationMs:   w.DurationMs,
		Available:    w.Available,
		Alternatives: alternatives,
		Files:        files,
		Album:        w.Album,
		Artists:      w.Artists,
		Covers:       w.Covers,
		Show:         w.Show,
	}
}

// DecryptionKey fetches the audio decryption key for (track id, file id).
func (c *Client) DecryptionKey(ctx context.Context, id trackid.ID, fileID string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog: rate limiter: %w", err)
	}
	url := fmt.Sprintf("%s/audio-items/%s/files/%s/key", c.baseURL, id.Raw(), fileID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: building request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: key request %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: key denied, status %d", ErrUnavailable, resp.StatusCode)
	}
	key, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading key from %s: %w", url, err)
	}
	return key, nil
}

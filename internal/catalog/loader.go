package catalog

import (
	"context"
	"crypto/sha1"
	"fmt"
	"sync"

	"github.com/johnnyslush/roon-extension-spotify/internal/assetstore"
	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
)

// bitratePreference returns the ordered format fallback list for a
// configured nominal bitrate: prefer the requested rate, then fall
// back through the others (96: 160 then 320; 160: 96 then 320;
// 320: 160 then 96).
func bitratePreference(preferred int) []FileFormat {
	switch preferred {
	case 96:
		return []FileFormat{FormatOggVorbis96, FormatOggVorbis160, FormatOggVorbis320}
	case 320:
		return []FileFormat{FormatOggVorbis320, FormatOggVorbis160, FormatOggVorbis96}
	default: // 160, and any unrecognized value
		return []FileFormat{FormatOggVorbis160, FormatOggVorbis96, FormatOggVorbis320}
	}
}

// metadataClient is the subset of *Client the Loader depends on,
// narrowed so tests can substitute a fake without standing up HTTP.
type metadataClient interface {
	GetAudioItem(ctx context.Context, id trackid.ID) (AudioItem, error)
	DecryptionKey(ctx context.Context, id trackid.ID, fileID string) ([]byte, error)
}

// Loader implements the Track Loader component.
type Loader struct {
	store      *Store
	client     metadataClient
	assets     assetstore.Store
	bitrate    int
	wantsAlbum bool // accepted via SetAutoNormaliseAsAlbum, never consulted
}

// NewLoader builds a Loader.
func NewLoader(store *Store, client metadataClient, assets assetstore.Store, bitratePreference int) *Loader {
	return &Loader{store: store, client: client, assets: assets, bitrate: bitratePreference}
}

// SetAutoNormaliseAsAlbum accepts the flag without acting on it; no
// loading decision currently depends on it.
func (l *Loader) SetAutoNormaliseAsAlbum(v bool) { l.wantsAlbum = v }

// Load fetches metadata, resolves an available file, decrypts it, and
// returns a seekable track whose stream starts at byte 0 of the audio
// payload; positionMs picks the asset access mode and is recorded as
// StartPositionMs. It is safe to
// call concurrently; callers typically run it on a worker goroutine
// and deliver the result over a one-shot channel (see internal/zone).
func (l *Loader) Load(ctx context.Context, id trackid.ID, positionMs int64) (*LoadedTrack, error) {
	audio, err := l.fetchAudioItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", ErrUnavailable, id, err)
	}

	audio, err = l.findAvailableAlternative(ctx, audio)
	if err != nil {
		return nil, err
	}

	if audio.DurationMs < 0 {
		return nil, fmt.Errorf("%w: track %s has negative duration %d", ErrUnavailable, id, audio.DurationMs)
	}

	_, fileID, ok := l.pickFormat(audio)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no supported format", ErrUnavailable, audio.Name)
	}

	mode := assetstore.AccessModeStreaming
	if positionMs != 0 {
		mode = assetstore.AccessModeRandomAccess
	}

	encrypted, err := l.assets.Open(ctx, fileID, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: opening encrypted asset: %v", ErrUnavailable, err)
	}

	key, err := l.client.DecryptionKey(ctx, audio.ID, fileID)
	if err != nil {
		encrypted.Close()
		return nil, fmt.Errorf("%w: fetching decryption key: %v", ErrUnavailable, err)
	}

	decrypted, err := newDecryptingReadSeeker(encrypted, key, deriveIV(fileID))
	if err != nil {
		encrypted.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	stream, err := newSubfileReader(decrypted, oggVorbisHeaderOffset)
	if err != nil {
		decrypted.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &LoadedTrack{
		Stream: stream,
		Metadata: AudioMetadata{
			ID:         audio.ID,
			Name:       audio.Name,
			DurationMs: audio.DurationMs,
			Album:      audio.Album,
			Artists:    audio.Artists,
			Covers:     audio.Covers,
			Show:       audio.Show,
		},
		StartPositionMs: positionMs,
	}, nil
}

func (l *Loader) fetchAudioItem(ctx context.Context, id trackid.ID) (AudioItem, error) {
	if l.store != nil {
		item, err := l.store.GetAudioItem(ctx, id)
		if err == nil {
			return item, nil
		}
		if !IsNoRows(err) {
			return AudioItem{}, err
		}
	}
	item, err := l.client.GetAudioItem(ctx, id)
	if err != nil {
		return AudioItem{}, err
	}
	if l.store != nil {
		if err := l.store.UpsertAudioItem(ctx, item); err != nil {
			return AudioItem{}, fmt.Errorf("caching audio item: %w", err)
		}
	}
	return item, nil
}

// findAvailableAlternative resolves an unavailable item: if audio is
// already available, use it as-is; otherwise probe every listed
// alternative concurrently and take the first available one.
func (l *Loader) findAvailableAlternative(ctx context.Context, audio AudioItem) (AudioItem, error) {
	if audio.Available {
		return audio, nil
	}
	if len(audio.Alternatives) == 0 {
		return AudioItem{}, fmt.Errorf("%w: %s is not available and has no alternatives", ErrUnavailable, audio.ID)
	}

	type result struct {
		item AudioItem
		err  error
	}
	resultsCh := make(chan result, len(audio.Alternatives))

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, alt := range audio.Alternatives {
		alt := alt
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := l.client.GetAudioItem(probeCtx, alt)
			resultsCh <- result{item: item, err: err}
		}()
	}
	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	for r := range resultsCh {
		if r.err == nil && r.item.Available {
			cancel()
			return r.item, nil
		}
	}
	return AudioItem{}, fmt.Errorf("%w: %s is not available in any alternative", ErrUnavailable, audio.ID)
}

func (l *Loader) pickFormat(audio AudioItem) (FileFormat, string, bool) {
	for _, format := range bitratePreference(l.bitrate) {
		if fileID, ok := audio.Files[format]; ok {
			return format, fileID, true
		}
	}
	return "", "", false
}

// deriveIV derives a deterministic per-file counter seed. The wire
// protocol this bridge targets does not carry an explicit IV alongside
// the decryption key; the key and the file id together are unique per
// asset, so hashing the file id keeps the keystream distinct per file
// without another round trip.
func deriveIV(fileID string) [audioFileIVLength]byte {
	sum := sha1.Sum([]byte(fileID))
	var iv [audioFileIVLength]byte
	copy(iv[:], sum[:audioFileIVLength])
	return iv
}

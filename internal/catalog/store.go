package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnnyslush/roon-extension-spotify/internal/trackid"
)

// Store is the audio-item metadata cache the Loader consults before
// falling back to the catalog HTTP client: a thin *pgxpool.Pool
// wrapper with one method per query shape.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool to Postgres using dsn.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("catalog: ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() { s.pool.Close() }

// Ping checks that Postgres is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// GetAudioItem returns the cached metadata record for id, or
// pgx.ErrNoRows if it has never been seen.
func (s *Store) GetAudioItem(ctx context.Context, id trackid.ID) (AudioItem, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, name, duration_ms, available, album, artists, covers, show_name
FROM audio_items WHERE id = $1`, id.Raw())

	var item AudioItem
	var rawID string
	if err := row.Scan(&rawID, &item.Name, &item.DurationMs, &item.Available,
		&item.Album, &item.Artists, &item.Covers, &item.Show); err != nil {
		return AudioItem{}, err
	}
	item.ID = trackid.New(rawID)
	if item.Show != "" {
		item.ID = trackid.NewEpisode(rawID)
	}

	alts, err := s.getAlternatives(ctx, id)
	if err != nil {
		return AudioItem{}, fmt.Errorf("catalog: loading alternatives for %s: %w", id, err)
	}
	item.Alternatives = alts

	files, err := s.getFiles(ctx, id)
	if err != nil {
		return AudioItem{}, fmt.Errorf("catalog: loading files for %s: %w", id, err)
	}
	item.Files = files

	return item, nil
}

func (s *Store) getAlternatives(ctx context.Context, id trackid.ID) ([]trackid.ID, error) {
	rows, err := s.pool.Query(ctx, `SELECT alternative_id FROM audio_item_alternatives WHERE audio_item_id = $1 ORDER BY rank`, id.Raw())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trackid.ID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, trackid.New(raw))
	}
	return out, rows.Err()
}

func (s *Store) getFiles(ctx context.Context, id trackid.ID) (map[FileFormat]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT format, file_id FROM audio_item_files WHERE audio_item_id = $1`, id.Raw())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := make(map[FileFormat]string)
	for rows.Next() {
		var format, fileID string
		if err := rows.Scan(&format, &fileID); err != nil {
			return nil, err
		}
		files[FileFormat(format)] = fileID
	}
	return files, rows.Err()
}

// UpsertAudioItem persists item so future loads can skip the catalog
// HTTP round trip.
func (s *Store) UpsertAudioItem(ctx context.Context, item AudioItem) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
INSERT INTO audio_items (id, name, duration_ms, available, album, artists, covers, show_name)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, duration_ms = EXCLUDED.duration_ms,
  available = EXCLUDED.available, album = EXCLUDED.album, artists = EXCLUDED.artists,
  covers = EXCLUDED.covers, show_name = EXCLUDED.show_name`,
		item.ID.Raw(), item.Name, item.DurationMs, item.Available, item.Album, item.Artists, item.Covers, item.Show); err != nil {
		return fmt.Errorf("catalog: upsert audio_items: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM audio_item_alternatives WHERE audio_item_id = $1`, item.ID.Raw()); err != nil {
		return fmt.Errorf("catalog: clearing alternatives: %w", err)
	}
	for rank, alt := range item.Alternatives {
		if _, err := tx.Exec(ctx, `INSERT INTO audio_item_alternatives (audio_item_id, alternative_id, rank) VALUES ($1,$2,$3)`,
			item.ID.Raw(), alt.Raw(), rank); err != nil {
			return fmt.Errorf("catalog: inserting alternative: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM audio_item_files WHERE audio_item_id = $1`, item.ID.Raw()); err != nil {
		return fmt.Errorf("catalog: clearing files: %w", err)
	}
	for format, fileID := range item.Files {
		if _, err := tx.Exec(ctx, `INSERT INTO audio_item_files (audio_item_id, format, file_id) VALUES ($1,$2,$3)`,
			item.ID.Raw(), string(format), fileID); err != nil {
			return fmt.Errorf("catalog: inserting file: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// IsNoRows reports whether err is pgx's not-found sentinel, so callers
// can fall through to the HTTP client without importing pgx directly.
func IsNoRows(err error) bool { return err == pgx.ErrNoRows }

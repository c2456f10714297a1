package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/banshee-data/hotspot.report/internal/grid"
)

// Blob kinds.
const (
	KindSurface = "surface"
	KindMatrix  = "count_matrix"
)

// encodeBlob gob-encodes v and gzips the result.
func encodeBlob[T any](v T) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(v); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeBlob reverses encodeBlob.
func decodeBlob[T any](blob []byte) (T, error) {
	var v T
	if len(blob) == 0 {
		return v, fmt.Errorf("empty blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return v, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()
	if err := gob.NewDecoder(gz).Decode(&v); err != nil {
		return v, fmt.Errorf("failed to decode blob: %w", err)
	}
	return v, nil
}

func (s *Store) putBlob(ctx context.Context, name, kind string, data []byte) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO blobs (name, kind, data, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET kind = excluded.kind, data = excluded.data, created_at = excluded.created_at`,
		name, kind, data, s.clock.Now().UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("save %s %q: %w", kind, name, err)
	}
	return nil
}

func (s *Store) getBlob(ctx context.Context, name, kind string) ([]byte, error) {
	var data []byte
	var got string
	err := s.QueryRowContext(ctx, `SELECT kind, data FROM blobs WHERE name = ?`, name).Scan(&got, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %q: %w", kind, name, err)
	}
	if got != kind {
		return nil, fmt.Errorf("blob %q holds a %s, not a %s", name, got, kind)
	}
	return data, nil
}

// SaveSurface stores s under name, replacing any previous value.
func (s *Store) SaveSurface(ctx context.Context, name string, surface *grid.Surface) error {
	blob, err := encodeBlob(surface)
	if err != nil {
		return fmt.Errorf("encode surface: %w", err)
	}
	return s.putBlob(ctx, name, KindSurface, blob)
}

// LoadSurface returns the surface stored under name.
func (s *Store) LoadSurface(ctx context.Context, name string) (*grid.Surface, error) {
	blob, err := s.getBlob(ctx, name, KindSurface)
	if err != nil {
		return nil, err
	}
	return decodeBlob[*grid.Surface](blob)
}

// SaveMatrix stores m under name, replacing any previous value.
func (s *Store) SaveMatrix(ctx context.Context, name string, m *grid.CountMatrix) error {
	blob, err := encodeBlob(m)
	if err != nil {
		return fmt.Errorf("encode count matrix: %w", err)
	}
	return s.putBlob(ctx, name, KindMatrix, blob)
}

// LoadMatrix returns the count matrix stored under name.
func (s *Store) LoadMatrix(ctx context.Context, name string) (*grid.CountMatrix, error) {
	blob, err := s.getBlob(ctx, name, KindMatrix)
	if err != nil {
		return nil, err
	}
	m, err := decodeBlob[*grid.CountMatrix](blob)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// BlobNames lists stored blob names of the given kind in name order.
func (s *Store) BlobNames(ctx context.Context, kind string) ([]string, error) {
	rows, err := s.QueryContext(ctx, `SELECT name FROM blobs WHERE kind = ? ORDER BY name`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

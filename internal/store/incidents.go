package store

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/hotspot.report/internal/incident"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

const dateLayout = time.RFC3339

// timestampLayout is fixed-width so created_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// InsertIncidents appends the set in one transaction and returns the
// number of rows written.
func (s *Store) InsertIncidents(ctx context.Context, set incident.Set) (int, error) {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO incidents (x, y, occurred_on, category) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for k, in := range set {
		if !risk.Finite(in.X) || !risk.Finite(in.Y) {
			return 0, fmt.Errorf("insert incident %d: coordinate (%g, %g): %w", k, in.X, in.Y, risk.ErrNonFinite)
		}
		if _, err := stmt.ExecContext(ctx, in.X, in.Y, in.Date.UTC().Format(dateLayout), in.Category); err != nil {
			return 0, fmt.Errorf("insert incident %d: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(set), nil
}

// LoadIncidents reads incidents of category (all when empty), optionally
// restricted to w, as a Set relative to refYear. A stored row with an
// infinite coordinate fails with risk.ErrNonFinite.
func (s *Store) LoadIncidents(ctx context.Context, category string, w *incident.Window, refYear int) (incident.Set, error) {
	query := `SELECT x, y, occurred_on, category FROM incidents WHERE (? = '' OR category = ?)`
	args := []any{category, category}
	if w != nil {
		query += ` AND occurred_on >= ? AND occurred_on < ?`
		args = append(args, w.Start.UTC().Format(dateLayout), w.End.UTC().Format(dateLayout))
	}
	query += ` ORDER BY occurred_on, incident_id`

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var out []incident.Incident
	for rows.Next() {
		var in incident.Incident
		var date string
		if err := rows.Scan(&in.X, &in.Y, &date, &in.Category); err != nil {
			return nil, err
		}
		if in.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		if !risk.Finite(in.X) || !risk.Finite(in.Y) {
			return nil, fmt.Errorf("stored incident %d: coordinate (%g, %g): %w", len(out)+1, in.X, in.Y, risk.ErrNonFinite)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return incident.NewSet(out, refYear), nil
}

// IncidentSource adapts the store to incident.Source.
type IncidentSource struct {
	Store    *Store
	Category string
	RefYear  int
}

func (src IncidentSource) Incidents(ctx context.Context) (incident.Set, error) {
	return src.Store.LoadIncidents(ctx, src.Category, nil, src.RefYear)
}

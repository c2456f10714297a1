package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/hotspot.report/internal/evaluate"
	"github.com/banshee-data/hotspot.report/internal/incident"
)

// Run is one persisted backtest.
type Run struct {
	ID        string
	Model     string
	Params    map[string]any
	CreatedAt time.Time
	Groups    []evaluate.GroupResult
}

// SaveRun writes run and its groups, assigning a new UUID when ID is empty.
// Curves are stored as blobs since PAI may hold NaN.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock.Now().UTC()
	}
	params := run.Params
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode run params: %w", err)
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO backtest_runs (run_id, model, params_json, created_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Model, string(paramsJSON), run.CreatedAt.UTC().Format(timestampLayout)); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	for _, g := range run.Groups {
		curve, err := encodeBlob(g.Curve)
		if err != nil {
			return fmt.Errorf("encode curve of group %d: %w", g.Group.Index, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_groups (run_id, group_index, train_start, train_end, test_start, test_end,
				train_count, test_count, reference_t, curve)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, g.Group.Index,
			g.Group.Train.Start.UTC().Format(dateLayout), g.Group.Train.End.UTC().Format(dateLayout),
			g.Group.Test.Start.UTC().Format(dateLayout), g.Group.Test.End.UTC().Format(dateLayout),
			g.TrainCount, g.TestCount, g.ReferenceT, curve); err != nil {
			return fmt.Errorf("insert group %d: %w", g.Group.Index, err)
		}
	}
	return tx.Commit()
}

// LoadRun reads a run and its groups ordered by group index.
func (s *Store) LoadRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{ID: id}
	var params, created string
	err := s.QueryRowContext(ctx,
		`SELECT model, params_json, created_at FROM backtest_runs WHERE run_id = ?`, id).
		Scan(&run.Model, &params, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
		return nil, fmt.Errorf("decode run params: %w", err)
	}
	if run.CreatedAt, err = time.Parse(timestampLayout, created); err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx, `
		SELECT group_index, train_start, train_end, test_start, test_end, train_count, test_count, reference_t, curve
		FROM backtest_groups WHERE run_id = ? ORDER BY group_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var g evaluate.GroupResult
		var ts [4]string
		var blob []byte
		if err := rows.Scan(&g.Group.Index, &ts[0], &ts[1], &ts[2], &ts[3],
			&g.TrainCount, &g.TestCount, &g.ReferenceT, &blob); err != nil {
			return nil, err
		}
		var parsed [4]time.Time
		for k, v := range ts {
			if parsed[k], err = time.Parse(dateLayout, v); err != nil {
				return nil, err
			}
		}
		g.Group.Train = incident.Window{Start: parsed[0], End: parsed[1]}
		g.Group.Test = incident.Window{Start: parsed[2], End: parsed[3]}
		if g.Curve, err = decodeBlob[*evaluate.Curve](blob); err != nil {
			return nil, fmt.Errorf("group %d: %w", g.Group.Index, err)
		}
		run.Groups = append(run.Groups, g)
	}
	return run, rows.Err()
}

// RunSummary is a row of ListRuns.
type RunSummary struct {
	ID        string
	Model     string
	CreatedAt time.Time
	Groups    int
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT r.run_id, r.model, r.created_at, COUNT(g.group_index)
		FROM backtest_runs r LEFT JOIN backtest_groups g ON g.run_id = r.run_id
		GROUP BY r.run_id ORDER BY r.created_at DESC, r.run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var created string
		if err := rows.Scan(&r.ID, &r.Model, &created, &r.Groups); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(timestampLayout, created); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Package features turns monthly incident counts and their neighbor ring
// layers into a per-cell feature table, labels cells as dangerous, and
// scores a classifier's per-cell predictions with the same hit-rate / PAI
// procedure used for the density estimators.
package features

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/incident"
	"github.com/banshee-data/hotspot.report/internal/neighbor"
	"github.com/banshee-data/hotspot.report/internal/region"
)

// Spec selects the months and depth used to build a Table.
type Spec struct {
	Year          int
	FeatureMonths []time.Month
	LabelMonth    time.Month
	MaxDepth      int
	Workers       int
	// Region, if set, keeps only cells whose center is inside it.
	Region region.Region
}

// DefaultSpec trains on January..September and labels October.
func DefaultSpec(year int) Spec {
	months := make([]time.Month, 0, 9)
	for m := time.January; m <= time.September; m++ {
		months = append(months, m)
	}
	return Spec{
		Year:          year,
		FeatureMonths: months,
		LabelMonth:    time.October,
		MaxDepth:      neighbor.DefaultMaxDepth,
	}
}

// Table is one row per kept cell. Rows[k] holds the features of cell
// CellIDs[k]; Labels[k] is 1 when that cell is dangerous in the label month.
type Table struct {
	Columns []string
	CellIDs []int
	Rows    [][]float64
	Labels  []float64
}

// MonthlyLayers counts the incidents of one calendar month on g and stacks
// its ring layers. Incidents outside the grid are dropped.
func MonthlyLayers(ctx context.Context, g *grid.Grid, set incident.Set, year int, month time.Month, maxDepth, workers int) (*neighbor.Layers, error) {
	counts, err := g.Count(set.Month(year, month).Within(g.Box).Points())
	if err != nil {
		return nil, fmt.Errorf("count %s %d: %w", month, year, err)
	}
	return neighbor.Build(ctx, counts, maxDepth, workers)
}

// Build assembles the feature table described by spec.
func Build(ctx context.Context, g *grid.Grid, set incident.Set, spec Spec) (*Table, error) {
	if len(spec.FeatureMonths) == 0 {
		return nil, fmt.Errorf("features: no feature months")
	}
	if spec.MaxDepth < 1 {
		spec.MaxDepth = neighbor.DefaultMaxDepth
	}

	var columns []string
	var stacks []*neighbor.Layers
	for _, m := range spec.FeatureMonths {
		layers, err := MonthlyLayers(ctx, g, set, spec.Year, m, spec.MaxDepth, spec.Workers)
		if err != nil {
			return nil, err
		}
		stacks = append(stacks, layers)
		for d := 0; d <= spec.MaxDepth; d++ {
			columns = append(columns, fmt.Sprintf("incidents_%d/%s", d, m))
		}
	}
	labelLayers, err := MonthlyLayers(ctx, g, set, spec.Year, spec.LabelMonth, spec.MaxDepth, spec.Workers)
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: columns}
	for id := 0; id < g.Cells(); id++ {
		if spec.Region != nil {
			x, y := g.CenterOf(g.CellAt(id))
			if !spec.Region.Contains(x, y) {
				continue
			}
		}
		row := make([]float64, 0, len(columns))
		for _, layers := range stacks {
			for d := 0; d <= spec.MaxDepth; d++ {
				m, _ := layers.Depth(d)
				row = append(row, float64(m.Counts[id]))
			}
		}
		t.CellIDs = append(t.CellIDs, id)
		t.Rows = append(t.Rows, row)
		t.Labels = append(t.Labels, dangerous(labelLayers, id))
	}
	return t, nil
}

// dangerous is 1 when any layer 0..D of the cell is non-zero.
func dangerous(l *neighbor.Layers, id int) float64 {
	for d := 0; d <= l.MaxDepth(); d++ {
		m, _ := l.Depth(d)
		if m.Counts[id] > 0 {
			return 1
		}
	}
	return 0
}

// Positives returns the number of dangerous rows.
func (t *Table) Positives() int {
	n := 0
	for _, v := range t.Labels {
		if v > 0 {
			n++
		}
	}
	return n
}

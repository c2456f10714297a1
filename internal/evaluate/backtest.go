package evaluate

import (
	"context"
	"fmt"

	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/incident"
	"github.com/banshee-data/hotspot.report/internal/monitoring"
	"github.com/banshee-data/hotspot.report/internal/region"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

// Model fits a density from a training set. promap.Model and stkde.Model
// implement it.
type Model interface {
	Name() string
	Fit(ctx context.Context, train []risk.Point) (risk.Density, error)
}

// Fold is one group of the backtest with its held-out incidents.
type Fold struct {
	Group incident.PredictGroup
	Test  []risk.Point
}

// GroupResult is the outcome of one fold.
type GroupResult struct {
	Group      incident.PredictGroup `json:"group"`
	TrainCount int                   `json:"train_count"`
	TestCount  int                   `json:"test_count"`
	ReferenceT float64               `json:"reference_t"`
	Curve      *Curve                `json:"curve"`
}

// BacktestConfig controls how every fold is scored.
type BacktestConfig struct {
	// Steps is the number of thresholds per curve.
	Steps int
	// Grid supplies the reference cell centers. When nil, a
	// ReferenceBins x ReferenceBins grid over the bounds of the running
	// training set is used.
	Grid          *grid.Grid
	ReferenceBins int
	// Region, if set, drops reference cells outside the study area.
	Region region.Region
}

// Folds splits set along groups: the initial training set is the first
// group's training window, and each fold holds its test window.
func Folds(set incident.Set, groups []incident.PredictGroup) (initial []risk.Point, folds []Fold) {
	if len(groups) == 0 {
		return nil, nil
	}
	initial = set.Between(groups[0].Train).Points()
	folds = make([]Fold, len(groups))
	for k, g := range groups {
		folds[k] = Fold{Group: g, Test: set.Between(g.Test).Points()}
	}
	return initial, folds
}

// Backtest folds over the groups in order. Group k is fitted on the
// initial training set plus the test incidents of groups 0..k-1 and scored
// on its own test incidents; the running training set is the only state
// carried between groups.
func Backtest(ctx context.Context, m Model, initial []risk.Point, folds []Fold, cfg BacktestConfig) ([]GroupResult, error) {
	if len(initial) == 0 {
		return nil, fmt.Errorf("backtest: initial training set: %w", risk.ErrEmptyInput)
	}
	logf := monitoring.Prefixed("Backtest")
	train := append(make([]risk.Point, 0, len(initial)), initial...)
	results := make([]GroupResult, 0, len(folds))

	for _, f := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := scoreFold(ctx, m, train, f, cfg)
		if err != nil {
			return nil, fmt.Errorf("backtest %s group %d: %w", m.Name(), f.Group.Index, err)
		}
		hr, pai := res.Curve.At(0.1)
		logf("%s group %d: train=%d test=%d hr@10%%=%.3f pai@10%%=%.3f",
			m.Name(), f.Group.Index, res.TrainCount, res.TestCount, hr, pai)
		results = append(results, *res)
		train = append(train, f.Test...)
	}
	return results, nil
}

// scoreFold fits m on train and evaluates it on f.Test. It does not retain
// or modify train.
func scoreFold(ctx context.Context, m Model, train []risk.Point, f Fold, cfg BacktestConfig) (*GroupResult, error) {
	density, err := m.Fit(ctx, train)
	if err != nil {
		return nil, err
	}
	lo, hi, err := risk.Bounds(train)
	if err != nil {
		return nil, err
	}

	g := cfg.Grid
	if g == nil {
		bins := cfg.ReferenceBins
		if bins < 1 {
			bins = DefaultSteps
		}
		box := grid.BoundingBox{XMin: lo.X, XMax: hi.X, YMin: lo.Y, YMax: hi.Y}
		if box.XMax <= box.XMin {
			box.XMax = box.XMin + 1
		}
		if box.YMax <= box.YMin {
			box.YMax = box.YMin + 1
		}
		if g, err = grid.NewGrid(box, bins, bins); err != nil {
			return nil, err
		}
	}
	reference := ReferencePoints(g, hi.T, cfg.Region)

	curve, err := Evaluate(ctx, density, f.Test, reference, cfg.Steps)
	if err != nil {
		return nil, err
	}
	return &GroupResult{
		Group:      f.Group,
		TrainCount: len(train),
		TestCount:  len(f.Test),
		ReferenceT: hi.T,
		Curve:      curve,
	}, nil
}

package features

import (
	"fmt"

	"github.com/banshee-data/hotspot.report/internal/evaluate"
	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

// PredictedSurface places per-row scores back on the grid. Cells not in
// the table score zero.
func PredictedSurface(g *grid.Grid, cellIDs []int, scores []float64) (*grid.Surface, error) {
	if len(cellIDs) != len(scores) {
		return nil, fmt.Errorf("predicted surface: %d cells, %d scores", len(cellIDs), len(scores))
	}
	s := grid.NewSurface(g)
	for k, id := range cellIDs {
		if id < 0 || id >= len(s.Values) {
			return nil, fmt.Errorf("predicted surface: cell id %d out of range", id)
		}
		s.Values[id] = scores[k]
	}
	return s, nil
}

// Confusion is a binary confusion matrix over table rows.
type Confusion struct {
	TP, FP, FN, TN int
}

// NewConfusion compares labels with scores thresholded at threshold.
func NewConfusion(labels, scores []float64, threshold float64) Confusion {
	var c Confusion
	for k, l := range labels {
		pred := scores[k] >= threshold
		switch {
		case l > 0 && pred:
			c.TP++
		case l > 0:
			c.FN++
		case pred:
			c.FP++
		default:
			c.TN++
		}
	}
	return c
}

// Precision returns TP / (TP + FP), or 0 when nothing was predicted.
func (c Confusion) Precision() float64 {
	if c.TP+c.FP == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall returns TP / (TP + FN), or 0 when there are no positives.
func (c Confusion) Recall() float64 {
	if c.TP+c.FN == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// HitRateAt scores predicted cells at a single threshold: the hit rate of
// the held-out incidents, the share of table cells at or above threshold
// and their ratio. Held-out incidents outside the grid score zero and stay
// in the hit-rate denominator, so they count as hits only at threshold 0,
// the same as grid.Surface.DensityAt under evaluate.Evaluate.
func HitRateAt(s *grid.Surface, cellIDs []int, heldOut []risk.Point, threshold float64) (hr, area, pai float64, err error) {
	fCrimes := make([]float64, len(heldOut))
	for k, p := range heldOut {
		id, err := s.Grid.IDOf(p.X, p.Y)
		if err != nil {
			continue
		}
		fCrimes[k] = s.Values[id]
	}
	fNodes := make([]float64, len(cellIDs))
	for k, id := range cellIDs {
		fNodes[k] = s.Values[id]
	}
	c, err := evaluate.CurveFromScores(fCrimes, fNodes, []float64{threshold})
	if err != nil {
		return 0, 0, 0, err
	}
	return c.HR[0], c.Area[0], c.PAI[0], nil
}

package evaluate

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/region"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

// DefaultSteps is the number of thresholds in a curve.
const DefaultSteps = 100

// Curve is the HR/PAI trade-off of one density. Entry k of each slice
// belongs to Thresholds[k]; thresholds ascend, so HR and Area are
// non-increasing in k. PAI is NaN where Area is zero.
type Curve struct {
	Thresholds []float64 `json:"thresholds"`
	HR         []float64 `json:"hr"`
	Area       []float64 `json:"area"`
	PAI        []float64 `json:"pai"`
}

// Len returns the number of thresholds.
func (c *Curve) Len() int { return len(c.Thresholds) }

// Evaluate scores d. heldOut are the incidents to predict and reference
// the points (typically cell centers at a fixed time) that stand in for
// the study area.
func Evaluate(ctx context.Context, d risk.Density, heldOut, reference []risk.Point, steps int) (*Curve, error) {
	if len(heldOut) == 0 {
		return nil, fmt.Errorf("evaluate: no held-out incidents: %w", risk.ErrEmptyInput)
	}
	if len(reference) == 0 {
		return nil, fmt.Errorf("evaluate: no reference points: %w", risk.ErrEmptyInput)
	}
	fCrimes, err := d.DensityAt(ctx, heldOut)
	if err != nil {
		return nil, fmt.Errorf("evaluate held-out density: %w", err)
	}
	fNodes, err := d.DensityAt(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("evaluate reference density: %w", err)
	}
	return CurveFromScores(fCrimes, fNodes, Thresholds(fNodes, steps))
}

// Thresholds returns steps evenly spaced values over [0, max(scores)].
// steps below 2 falls back to DefaultSteps.
func Thresholds(scores []float64, steps int) []float64 {
	if steps < 2 {
		steps = DefaultSteps
	}
	top := 0.0
	if len(scores) > 0 {
		top = math.Max(0, floats.Max(scores))
	}
	return floats.Span(make([]float64, steps), 0, top)
}

// CurveFromScores builds a curve from precomputed scores. Counting uses
// sorted copies and a binary search per threshold. A NaN or infinite score
// is reported as risk.ErrNonFinite.
func CurveFromScores(fCrimes, fNodes, thresholds []float64) (*Curve, error) {
	if len(fCrimes) == 0 || len(fNodes) == 0 {
		return nil, fmt.Errorf("curve: %w", risk.ErrEmptyInput)
	}
	if err := checkScores("held-out", fCrimes); err != nil {
		return nil, err
	}
	if err := checkScores("reference", fNodes); err != nil {
		return nil, err
	}
	crimes := slices.Clone(fCrimes)
	nodes := slices.Clone(fNodes)
	slices.Sort(crimes)
	slices.Sort(nodes)

	c := &Curve{
		Thresholds: slices.Clone(thresholds),
		HR:         make([]float64, len(thresholds)),
		Area:       make([]float64, len(thresholds)),
		PAI:        make([]float64, len(thresholds)),
	}
	for k, th := range thresholds {
		c.HR[k] = atLeast(crimes, th)
		c.Area[k] = atLeast(nodes, th)
		if c.Area[k] == 0 {
			c.PAI[k] = math.NaN()
		} else {
			c.PAI[k] = c.HR[k] / c.Area[k]
		}
	}
	return c, nil
}

func checkScores(kind string, scores []float64) error {
	for k, v := range scores {
		if !risk.Finite(v) {
			return fmt.Errorf("curve: %s score %d is %g: %w", kind, k, v, risk.ErrNonFinite)
		}
	}
	return nil
}

// atLeast returns the fraction of sorted values >= th.
func atLeast(sorted []float64, th float64) float64 {
	idx := sort.SearchFloat64s(sorted, th)
	return float64(len(sorted)-idx) / float64(len(sorted))
}

// At interpolates HR and PAI at a target area percentage in [0, 1]. It
// returns NaN when the curve never reaches that area.
func (c *Curve) At(area float64) (hr, pai float64) {
	for k := 0; k+1 < c.Len(); k++ {
		a0, a1 := c.Area[k], c.Area[k+1]
		if area > a0 || area < a1 {
			continue
		}
		if a0 == a1 {
			return c.HR[k], c.PAI[k]
		}
		w := (a0 - area) / (a0 - a1)
		hr = c.HR[k] + w*(c.HR[k+1]-c.HR[k])
		if area == 0 {
			return hr, math.NaN()
		}
		return hr, hr / area
	}
	if c.Len() > 0 && area == c.Area[c.Len()-1] {
		return c.HR[c.Len()-1], c.PAI[c.Len()-1]
	}
	return math.NaN(), math.NaN()
}

// ReferencePoints returns the centers of g at time t, keeping only cells
// whose center lies inside r. A nil region keeps every cell.
func ReferencePoints(g *grid.Grid, t float64, r region.Region) []risk.Point {
	centers := g.Centers(t)
	if r == nil {
		return centers
	}
	out := centers[:0]
	for _, p := range centers {
		if r.Contains(p.X, p.Y) {
			out = append(out, p)
		}
	}
	return out
}

package stkde

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/hotspot.report/internal/monitoring"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

// Bandwidth holds one kernel width per dimension.
type Bandwidth struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T float64 `json:"t"`
}

// Validate rejects non-positive or non-finite widths.
func (b Bandwidth) Validate() error {
	for _, d := range []struct {
		name string
		v    float64
	}{{"x", b.X}, {"y", b.Y}, {"t", b.T}} {
		if !(d.v > 0) || math.IsInf(d.v, 0) {
			return &risk.InvalidBandwidthError{Dim: d.name, Value: d.v}
		}
	}
	return nil
}

func (b Bandwidth) String() string {
	return fmt.Sprintf("x=%.3f y=%.3f t=%.3f", b.X, b.Y, b.T)
}

func (b Bandwidth) vec() [3]float64 { return [3]float64{b.X, b.Y, b.T} }

// NormalReference returns the rule-of-thumb bandwidth 1.06*sigma*n^(-1/7)
// per dimension (d = 3). Dimensions with zero spread fall back to 1.
func NormalReference(pts []risk.Point) (Bandwidth, error) {
	if len(pts) < 2 {
		return Bandwidth{}, fmt.Errorf("normal reference needs at least 2 points: %w", risk.ErrEmptyInput)
	}
	cols := columns(pts)
	factor := 1.06 * math.Pow(float64(len(pts)), -1.0/7.0)
	var h [3]float64
	for d := range cols {
		sd := stat.StdDev(cols[d], nil)
		if !(sd > 0) || math.IsNaN(sd) {
			sd = 1
		}
		h[d] = factor * sd
	}
	return Bandwidth{X: h[0], Y: h[1], T: h[2]}, nil
}

// CVLogLikelihood is the leave-one-out log likelihood of pts under bw:
// the sum over i of log f_{-i}(p_i). Higher is better.
func CVLogLikelihood(pts []risk.Point, bw Bandwidth) float64 {
	n := len(pts)
	if n < 2 {
		return math.Inf(-1)
	}
	h := bw.vec()
	norm := 1 / (math.Pow(2*math.Pi, 1.5) * h[0] * h[1] * h[2] * float64(n-1))
	total := 0.0
	for i, p := range pts {
		sum := 0.0
		for j, q := range pts {
			if i == j {
				continue
			}
			zx := (p.X - q.X) / h[0]
			zy := (p.Y - q.Y) / h[1]
			zt := (p.T - q.T) / h[2]
			sum += math.Exp(-0.5 * (zx*zx + zy*zy + zt*zt))
		}
		if sum <= 0 {
			// isolated point: floor at exp(-745)
			total += -745
			continue
		}
		total += math.Log(sum * norm)
	}
	return total
}

// SelectBandwidth maximises CVLogLikelihood over log-bandwidths with
// Nelder-Mead, starting from the normal-reference rule. When sampleSize is
// positive and smaller than len(pts), a deterministic subsample drawn with
// seed is used for the O(n^2) objective.
func SelectBandwidth(ctx context.Context, pts []risk.Point, sampleSize int, seed uint64) (Bandwidth, error) {
	if len(pts) < 2 {
		return Bandwidth{}, fmt.Errorf("bandwidth selection needs at least 2 points: %w", risk.ErrEmptyInput)
	}
	sample := pts
	if sampleSize > 1 && sampleSize < len(pts) {
		r := rand.New(rand.NewPCG(seed, 0x5eed))
		perm := r.Perm(len(pts))
		sample = make([]risk.Point, sampleSize)
		for k := range sample {
			sample[k] = pts[perm[k]]
		}
	}

	start, err := NormalReference(sample)
	if err != nil {
		return Bandwidth{}, err
	}
	logf := monitoring.Prefixed("STKDE")
	logf("cv-ml on %d points, starting from %s", len(sample), start)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if ctx.Err() != nil {
				return math.Inf(1)
			}
			bw := Bandwidth{X: math.Exp(x[0]), Y: math.Exp(x[1]), T: math.Exp(x[2])}
			return -CVLogLikelihood(sample, bw)
		},
	}
	init := []float64{math.Log(start.X), math.Log(start.Y), math.Log(start.T)}
	settings := &optimize.Settings{MajorIterations: 500}

	result, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{})
	if cerr := ctx.Err(); cerr != nil {
		return Bandwidth{}, cerr
	}
	if result == nil {
		return Bandwidth{}, fmt.Errorf("bandwidth optimisation failed: %w", err)
	}
	if err != nil {
		logf("optimiser stopped early (%v); using best point found", err)
	}

	bw := Bandwidth{X: math.Exp(result.X[0]), Y: math.Exp(result.X[1]), T: math.Exp(result.X[2])}
	if CVLogLikelihood(sample, bw) < CVLogLikelihood(sample, start) {
		bw = start
	}
	if err := bw.Validate(); err != nil {
		return Bandwidth{}, err
	}
	logf("cv-ml selected %s", bw)
	return bw, nil
}

func columns(pts []risk.Point) [3][]float64 {
	var cols [3][]float64
	for d := range cols {
		cols[d] = make([]float64, len(pts))
	}
	for k, p := range pts {
		cols[0][k], cols[1][k], cols[2][k] = p.X, p.Y, p.T
	}
	return cols
}

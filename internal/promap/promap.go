package promap

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/monitoring"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

// Bandwidth is the half-width of the spatial window around each incident.
type Bandwidth struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Validate rejects non-positive or non-finite widths.
func (b Bandwidth) Validate() error {
	if !(b.X > 0) || math.IsInf(b.X, 0) {
		return &risk.InvalidBandwidthError{Dim: "x", Value: b.X}
	}
	if !(b.Y > 0) || math.IsInf(b.Y, 0) {
		return &risk.InvalidBandwidthError{Dim: "y", Value: b.Y}
	}
	return nil
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithWorkers sets the number of partial accumulators. Values < 1 are
// replaced by GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Estimator) { e.workers = n }
}

// WithDistanceFloor overrides the minimum center-to-incident distance used
// in the inverse-distance weight.
func WithDistanceFloor(d float64) Option {
	return func(e *Estimator) { e.distanceFloor = d }
}

// Estimator fits ProMap surfaces over a fixed grid.
type Estimator struct {
	grid          *grid.Grid
	bw            Bandwidth
	workers       int
	distanceFloor float64
}

// NewEstimator validates the bandwidth and returns an Estimator. The
// default distance floor is half the smaller cell side, so an incident
// sitting on a cell center still produces a finite weight.
func NewEstimator(g *grid.Grid, bw Bandwidth, opts ...Option) (*Estimator, error) {
	if g == nil {
		return nil, fmt.Errorf("promap: nil grid")
	}
	if err := bw.Validate(); err != nil {
		return nil, err
	}
	e := &Estimator{
		grid:          g,
		bw:            bw,
		distanceFloor: math.Min(g.HX, g.HY) / 2,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	if !(e.distanceFloor > 0) {
		return nil, fmt.Errorf("promap: distance floor must be > 0, got %g", e.distanceFloor)
	}
	return e, nil
}

// Grid returns the grid surfaces are fitted on.
func (e *Estimator) Grid() *grid.Grid { return e.grid }

// Fit accumulates every incident into a fresh surface. The training window
// ends at the largest T among the incidents. Incidents are split into
// contiguous chunks, each summed into its own partial surface, and the
// partials are added in chunk order so a given worker count always yields
// the same floating-point result. A NaN or infinite coordinate is reported
// as risk.ErrNonFinite.
func (e *Estimator) Fit(ctx context.Context, incidents []risk.Point) (*grid.Surface, error) {
	if len(incidents) == 0 {
		return nil, fmt.Errorf("promap fit: %w", risk.ErrEmptyInput)
	}
	if err := risk.CheckFinite(incidents); err != nil {
		return nil, fmt.Errorf("promap fit: %w", err)
	}
	defer monitoring.Timed("ProMap", fmt.Sprintf("fit of %d incidents", len(incidents)))()

	totalDays := incidents[0].T
	for _, p := range incidents[1:] {
		totalDays = math.Max(totalDays, p.T)
	}

	// chunks can be fewer than workers; every chunk is non-empty.
	n := len(incidents)
	size := (n + e.workers - 1) / e.workers
	chunks := (n + size - 1) / size
	partials := make([][]float64, chunks)

	g, ctx := errgroup.WithContext(ctx)
	for c := 0; c < chunks; c++ {
		lo := c * size
		hi := min(lo+size, n)
		g.Go(func() error {
			acc := make([]float64, e.grid.Cells())
			for k, p := range incidents[lo:hi] {
				if k%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				e.accumulate(acc, p, totalDays)
			}
			partials[c] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	surface := grid.NewSurface(e.grid)
	for _, acc := range partials {
		if acc != nil {
			floats.Add(surface.Values, acc)
		}
	}
	return surface, nil
}

// accumulate adds one incident's contribution to every cell whose center
// lies inside the bandwidth window. Only the candidate column and row
// ranges are scanned.
func (e *Estimator) accumulate(acc []float64, p risk.Point, totalDays float64) {
	g := e.grid
	tw := WeekWeight(totalDays, p.T)

	iLo, iHi := centerRange(p.X-e.bw.X, p.X+e.bw.X, g.Box.XMin, g.HX, g.NX)
	jLo, jHi := centerRange(p.Y-e.bw.Y, p.Y+e.bw.Y, g.Box.YMin, g.HY, g.NY)
	for j := jLo; j <= jHi; j++ {
		for i := iLo; i <= iHi; i++ {
			cx, cy := g.CenterOf(i, j)
			if math.Abs(cx-p.X) > e.bw.X || math.Abs(cy-p.Y) > e.bw.Y {
				continue
			}
			d := math.Max(math.Hypot(cx-p.X, cy-p.Y), e.distanceFloor)
			acc[g.IndexOf(i, j)] += tw / d
		}
	}
}

// centerRange returns the inclusive index range of cells whose centers may
// fall within [lo, hi], widened by one cell on each side and clamped. The
// exact window test is applied per cell by the caller.
func centerRange(lo, hi, origin, h float64, n int) (int, int) {
	a := int(math.Floor((lo-origin)/h-0.5)) - 1
	b := int(math.Ceil((hi-origin)/h-0.5)) + 1
	if a < 0 {
		a = 0
	}
	if b > n-1 {
		b = n - 1
	}
	return a, b
}

package risk

import "context"

// Point is a space-time query point. X and Y are projected coordinates in
// the grid's spatial reference; T is a day offset.
type Point struct {
	X float64
	Y float64
	T float64
}

// Density is anything that can score points: a fitted STKDE, a ProMap
// surface or a classifier's per-cell predictions. The returned slice has one
// non-negative entry per input point.
type Density interface {
	DensityAt(ctx context.Context, pts []Point) ([]float64, error)
}

// DensityFunc adapts an ordinary function to the Density interface.
type DensityFunc func(ctx context.Context, pts []Point) ([]float64, error)

// DensityAt calls f(ctx, pts).
func (f DensityFunc) DensityAt(ctx context.Context, pts []Point) ([]float64, error) {
	return f(ctx, pts)
}

// Bounds returns the componentwise minimum and maximum of pts. It reports
// ErrEmptyInput when pts is empty.
func Bounds(pts []Point) (lo, hi Point, err error) {
	if len(pts) == 0 {
		return Point{}, Point{}, ErrEmptyInput
	}
	lo, hi = pts[0], pts[0]
	for _, p := range pts[1:] {
		lo.X = min(lo.X, p.X)
		lo.Y = min(lo.Y, p.Y)
		lo.T = min(lo.T, p.T)
		hi.X = max(hi.X, p.X)
		hi.Y = max(hi.Y, p.Y)
		hi.T = max(hi.T, p.T)
	}
	return lo, hi, nil
}

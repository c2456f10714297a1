package risk

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel error kinds. Concrete error values below unwrap to these so
// callers can branch with errors.Is without depending on the detail types.
var (
	ErrOutOfDomain       = errors.New("point outside grid domain")
	ErrInvalidBandwidth  = errors.New("invalid bandwidth")
	ErrResampleExhausted = errors.New("resample round budget exhausted")
	ErrEmptyInput        = errors.New("empty input")
	ErrNonFinite         = errors.New("non-finite value")
)

// OutOfDomainError reports a coordinate that lies beyond the bounding box by
// more than the indexer's tolerance.
type OutOfDomainError struct {
	X, Y float64
}

func (e *OutOfDomainError) Error() string {
	return fmt.Sprintf("point (%g, %g) outside grid domain", e.X, e.Y)
}

func (e *OutOfDomainError) Unwrap() error { return ErrOutOfDomain }

// InvalidBandwidthError reports a non-positive or non-finite bandwidth.
type InvalidBandwidthError struct {
	Dim   string
	Value float64
}

func (e *InvalidBandwidthError) Error() string {
	return fmt.Sprintf("invalid bandwidth for %s: %g (must be finite and > 0)", e.Dim, e.Value)
}

func (e *InvalidBandwidthError) Unwrap() error { return ErrInvalidBandwidth }

// ResampleExhaustedError reports that the rejection sampler hit its round
// budget before producing the requested number of valid points.
type ResampleExhaustedError struct {
	Requested int
	Produced  int
	Rounds    int
}

func (e *ResampleExhaustedError) Error() string {
	return fmt.Sprintf("resample produced %d of %d points after %d rounds", e.Produced, e.Requested, e.Rounds)
}

func (e *ResampleExhaustedError) Unwrap() error { return ErrResampleExhausted }

// NonFiniteError reports a point with a NaN or infinite coordinate. Index is
// the position of the point in its input slice.
type NonFiniteError struct {
	Index int
	Point Point
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("point %d (%g, %g, %g) has a non-finite coordinate", e.Index, e.Point.X, e.Point.Y, e.Point.T)
}

func (e *NonFiniteError) Unwrap() error { return ErrNonFinite }

// CheckFinite returns a *NonFiniteError for the first point in pts with a
// NaN or infinite X, Y or T.
func CheckFinite(pts []Point) error {
	for k, p := range pts {
		if !Finite(p.X) || !Finite(p.Y) || !Finite(p.T) {
			return &NonFiniteError{Index: k, Point: p}
		}
	}
	return nil
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

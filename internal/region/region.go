// Package region decides whether a coordinate lies inside the study area.
// The STKDE resampler uses it to reject candidates that fall outside the
// city, and the evaluator uses it to restrict reference cells.
package region

import (
	"github.com/banshee-data/hotspot.report/internal/grid"
)

// Region is a geographic validity oracle.
type Region interface {
	Contains(x, y float64) bool
}

// Func adapts a predicate to Region.
type Func func(x, y float64) bool

func (f Func) Contains(x, y float64) bool { return f(x, y) }

// All accepts every coordinate.
var All Region = Func(func(float64, float64) bool { return true })

// Box accepts coordinates inside a closed bounding box.
type Box grid.BoundingBox

func (b Box) Contains(x, y float64) bool {
	return x >= b.XMin && x <= b.XMax && y >= b.YMin && y <= b.YMax
}

// None rejects everything. It exists to exercise resample exhaustion.
var None Region = Func(func(float64, float64) bool { return false })

package grid

import (
	"fmt"
	"math"

	"github.com/banshee-data/hotspot.report/internal/risk"
)

// DefaultEpsilon is the distance outside the bounding box within which a
// point is still clamped into the edge cell rather than rejected.
const DefaultEpsilon = 1e-6

// BoundingBox is an axis-aligned study area in projected coordinates.
type BoundingBox struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// Validate checks XMax > XMin and YMax > YMin and that every edge is finite.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.XMin, b.XMax, b.YMin, b.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bounding box has non-finite edge: %+v", b)
		}
	}
	if b.XMax <= b.XMin {
		return fmt.Errorf("bounding box x_max (%g) must exceed x_min (%g)", b.XMax, b.XMin)
	}
	if b.YMax <= b.YMin {
		return fmt.Errorf("bounding box y_max (%g) must exceed y_min (%g)", b.YMax, b.YMin)
	}
	return nil
}

func (b BoundingBox) Width() float64  { return b.XMax - b.XMin }
func (b BoundingBox) Height() float64 { return b.YMax - b.YMin }

// Contains reports whether (x, y) lies in the half-open box [XMin, XMax) x [YMin, YMax).
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.XMin && x < b.XMax && y >= b.YMin && y < b.YMax
}

// Area returns the box area in squared projected units.
func (b BoundingBox) Area() float64 { return b.Width() * b.Height() }

// Grid is an immutable NX x NY partition of a bounding box.
type Grid struct {
	Box     BoundingBox
	NX      int
	NY      int
	HX      float64
	HY      float64
	Epsilon float64
}

// NewGrid partitions box into nx columns and ny rows.
func NewGrid(box BoundingBox, nx, ny int) (*Grid, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", nx, ny)
	}
	return &Grid{
		Box:     box,
		NX:      nx,
		NY:      ny,
		HX:      box.Width() / float64(nx),
		HY:      box.Height() / float64(ny),
		Epsilon: DefaultEpsilon,
	}, nil
}

// NewGridWithCellSize partitions box into cells of approximately hx by hy,
// rounding the cell count to the nearest integer (at least one). The actual
// cell size is recomputed so the cells tile the box exactly.
func NewGridWithCellSize(box BoundingBox, hx, hy float64) (*Grid, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if !(hx > 0) || !(hy > 0) {
		return nil, fmt.Errorf("cell size must be positive, got %gx%g", hx, hy)
	}
	nx := max(1, int(math.Round(box.Width()/hx)))
	ny := max(1, int(math.Round(box.Height()/hy)))
	return NewGrid(box, nx, ny)
}

// WithEpsilon returns a copy of g with a different clamping tolerance.
func (g *Grid) WithEpsilon(eps float64) *Grid {
	c := *g
	c.Epsilon = math.Abs(eps)
	return &c
}

// Cells returns NX*NY.
func (g *Grid) Cells() int { return g.NX * g.NY }

// CellArea returns HX*HY.
func (g *Grid) CellArea() float64 { return g.HX * g.HY }

// CellOf maps a coordinate to its (i, j) cell. The domain is half-open, so a
// point exactly on XMax or YMax lands in the last column or row. Points
// further than Epsilon outside the box yield a *risk.OutOfDomainError.
func (g *Grid) CellOf(x, y float64) (i, j int, err error) {
	b := g.Box
	if math.IsNaN(x) || math.IsNaN(y) ||
		x < b.XMin-g.Epsilon || x > b.XMax+g.Epsilon ||
		y < b.YMin-g.Epsilon || y > b.YMax+g.Epsilon {
		return 0, 0, &risk.OutOfDomainError{X: x, Y: y}
	}
	i = clamp(int(math.Floor((x-b.XMin)/g.HX)), 0, g.NX-1)
	j = clamp(int(math.Floor((y-b.YMin)/g.HY)), 0, g.NY-1)
	return i, j, nil
}

// IDOf maps a coordinate directly to its flat cell id.
func (g *Grid) IDOf(x, y float64) (int, error) {
	i, j, err := g.CellOf(x, y)
	if err != nil {
		return 0, err
	}
	return g.IndexOf(i, j), nil
}

// IndexOf returns the flat id i + j*NX.
func (g *Grid) IndexOf(i, j int) int { return i + j*g.NX }

// CellAt is the inverse of IndexOf.
func (g *Grid) CellAt(id int) (i, j int) { return id % g.NX, id / g.NX }

// CenterOf returns the representative coordinate of cell (i, j).
func (g *Grid) CenterOf(i, j int) (x, y float64) {
	return g.Box.XMin + (float64(i)+0.5)*g.HX, g.Box.YMin + (float64(j)+0.5)*g.HY
}

// Centers returns every cell center at time t, ordered by flat id.
func (g *Grid) Centers(t float64) []risk.Point {
	out := make([]risk.Point, 0, g.Cells())
	for j := 0; j < g.NY; j++ {
		for i := 0; i < g.NX; i++ {
			x, y := g.CenterOf(i, j)
			out = append(out, risk.Point{X: x, Y: y, T: t})
		}
	}
	return out
}

// Count bins pts into a new CountMatrix. Any point outside the domain
// aborts the count.
func (g *Grid) Count(pts []risk.Point) (*CountMatrix, error) {
	m := NewCountMatrix(g.NX, g.NY)
	for _, p := range pts {
		i, j, err := g.CellOf(p.X, p.Y)
		if err != nil {
			return nil, err
		}
		m.Counts[g.IndexOf(i, j)]++
	}
	return m, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package grid

import (
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/hotspot.report/internal/risk"
)

// CountMatrix holds one incident count per cell, indexed by flat id.
type CountMatrix struct {
	NX     int
	NY     int
	Counts []int
}

// NewCountMatrix allocates a zeroed nx x ny matrix.
func NewCountMatrix(nx, ny int) *CountMatrix {
	return &CountMatrix{NX: nx, NY: ny, Counts: make([]int, nx*ny)}
}

// At returns the count of cell (i, j). Cells outside the matrix read as zero.
func (m *CountMatrix) At(i, j int) int {
	if i < 0 || j < 0 || i >= m.NX || j >= m.NY {
		return 0
	}
	return m.Counts[i+j*m.NX]
}

// Set assigns the count of cell (i, j).
func (m *CountMatrix) Set(i, j, v int) { m.Counts[i+j*m.NX] = v }

// Total returns the sum of all counts.
func (m *CountMatrix) Total() int {
	n := 0
	for _, c := range m.Counts {
		n += c
	}
	return n
}

// Clone returns a deep copy.
func (m *CountMatrix) Clone() *CountMatrix {
	c := &CountMatrix{NX: m.NX, NY: m.NY, Counts: make([]int, len(m.Counts))}
	copy(c.Counts, m.Counts)
	return c
}

// Validate checks that the backing array matches the declared shape.
func (m *CountMatrix) Validate() error {
	if m.NX < 1 || m.NY < 1 {
		return fmt.Errorf("count matrix dimensions must be positive, got %dx%d", m.NX, m.NY)
	}
	if len(m.Counts) != m.NX*m.NY {
		return fmt.Errorf("count matrix has %d cells, want %d", len(m.Counts), m.NX*m.NY)
	}
	return nil
}

// Surface is a non-negative risk value per cell. It is read-only once an
// estimator has returned it.
type Surface struct {
	Grid   Grid
	Values []float64
}

// NewSurface allocates a zeroed surface over g.
func NewSurface(g *Grid) *Surface {
	return &Surface{Grid: *g, Values: make([]float64, g.Cells())}
}

// At returns the value of cell (i, j).
func (s *Surface) At(i, j int) float64 { return s.Values[s.Grid.IndexOf(i, j)] }

// Max returns the largest cell value, or 0 for an empty surface.
func (s *Surface) Max() float64 {
	m := 0.0
	for _, v := range s.Values {
		m = math.Max(m, v)
	}
	return m
}

// Sum returns the total mass of the surface.
func (s *Surface) Sum() float64 {
	total := 0.0
	for _, v := range s.Values {
		total += v
	}
	return total
}

// DensityAt scores each point with the value of the cell containing it.
// Points outside the grid domain score zero, so as held-out incidents they
// are counted as misses at every positive threshold.
func (s *Surface) DensityAt(ctx context.Context, pts []risk.Point) ([]float64, error) {
	out := make([]float64, len(pts))
	for k, p := range pts {
		if k%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		id, err := s.Grid.IDOf(p.X, p.Y)
		if err != nil {
			continue
		}
		out[k] = s.Values[id]
	}
	return out, nil
}

// Package neighbor computes concentric diamond ring layers over a
// CountMatrix. Layer d of a cell is the sum of the counts of every cell at
// Manhattan distance exactly d from it, with out-of-range neighbors counted
// as zero. Stacked layers 1..D are the spatial context features used by the
// cell classifier.
package neighbor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/hotspot.report/internal/grid"
)

// DefaultMaxDepth is the deepest ring computed when no depth is configured.
const DefaultMaxDepth = 7

// Kernel returns the dense (2d+1) x (2d+1) diamond perimeter kernel for
// depth d: 1 where |dx|+|dy| == d and 0 elsewhere, including the center.
// Rows are indexed by dy and columns by dx.
func Kernel(depth int) ([][]int, error) {
	if depth < 1 {
		return nil, fmt.Errorf("ring depth must be >= 1, got %d", depth)
	}
	size := 2*depth + 1
	k := make([][]int, size)
	for r := range k {
		k[r] = make([]int, size)
		for c := range k[r] {
			if abs(r-depth)+abs(c-depth) == depth {
				k[r][c] = 1
			}
		}
	}
	return k, nil
}

// taps lists the 4d offsets on the diamond perimeter of depth d.
func taps(depth int) [][2]int {
	out := make([][2]int, 0, 4*depth)
	for dx := -depth; dx <= depth; dx++ {
		dy := depth - abs(dx)
		out = append(out, [2]int{dx, dy})
		if dy != 0 {
			out = append(out, [2]int{dx, -dy})
		}
	}
	return out
}

// Layer returns the same-size ring-sum of m at the given depth. Only the 4d
// non-zero taps are visited, so the cost is O(NX*NY*d).
func Layer(m *grid.CountMatrix, depth int) (*grid.CountMatrix, error) {
	if depth < 1 {
		return nil, fmt.Errorf("ring depth must be >= 1, got %d", depth)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	offsets := taps(depth)
	out := grid.NewCountMatrix(m.NX, m.NY)
	for j := 0; j < m.NY; j++ {
		for i := 0; i < m.NX; i++ {
			sum := 0
			for _, o := range offsets {
				sum += m.At(i+o[0], j+o[1])
			}
			out.Counts[i+j*m.NX] = sum
		}
	}
	return out, nil
}

// Layers is the stack produced by Build: the base counts (depth 0) plus one
// ring layer per depth 1..MaxDepth.
type Layers struct {
	Base    *grid.CountMatrix
	ByDepth []*grid.CountMatrix // ByDepth[d-1] is depth d
}

// MaxDepth returns the deepest layer held.
func (l *Layers) MaxDepth() int { return len(l.ByDepth) }

// Depth returns layer d; depth 0 is the base matrix.
func (l *Layers) Depth(d int) (*grid.CountMatrix, error) {
	if d == 0 {
		return l.Base, nil
	}
	if d < 0 || d > len(l.ByDepth) {
		return nil, fmt.Errorf("depth %d outside [0, %d]", d, len(l.ByDepth))
	}
	return l.ByDepth[d-1], nil
}

// Build computes layers 1..maxDepth of m. Depths are independent so each
// runs on its own goroutine, bounded by workers (<= 0 means one per depth).
func Build(ctx context.Context, m *grid.CountMatrix, maxDepth, workers int) (*Layers, error) {
	if maxDepth < 1 {
		return nil, fmt.Errorf("max ring depth must be >= 1, got %d", maxDepth)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	out := &Layers{Base: m, ByDepth: make([]*grid.CountMatrix, maxDepth)}

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for d := 1; d <= maxDepth; d++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			layer, err := Layer(m, d)
			if err != nil {
				return fmt.Errorf("depth %d: %w", d, err)
			}
			out.ByDepth[d-1] = layer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

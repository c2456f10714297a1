package grid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hotspot.report/internal/risk"
)

func unitGrid(t *testing.T, nx, ny int) *Grid {
	t.Helper()
	g, err := NewGrid(BoundingBox{XMin: 0, XMax: float64(nx), YMin: 0, YMax: float64(ny)}, nx, ny)
	require.NoError(t, err)
	return g
}

func TestBoundingBoxValidate(t *testing.T) {
	testCases := []struct {
		name    string
		box     BoundingBox
		wantErr bool
	}{
		{"valid", BoundingBox{0, 10, 0, 5}, false},
		{"zero width", BoundingBox{1, 1, 0, 5}, true},
		{"inverted height", BoundingBox{0, 10, 5, 0}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.box.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewGrid(t *testing.T) {
	g, err := NewGrid(BoundingBox{XMin: -10, XMax: 10, YMin: 0, YMax: 5}, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, g.HX)
	assert.Equal(t, 1.0, g.HY)
	assert.Equal(t, 20, g.Cells())

	_, err = NewGrid(BoundingBox{XMin: 0, XMax: 1, YMin: 0, YMax: 1}, 0, 3)
	assert.Error(t, err)
}

func TestNewGridWithCellSize(t *testing.T) {
	g, err := NewGridWithCellSize(BoundingBox{XMin: 0, XMax: 1000, YMin: 0, YMax: 530}, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, g.NX)
	assert.Equal(t, 5, g.NY)
	assert.InDelta(t, 106.0, g.HY, 1e-12)
}

func TestCellOf(t *testing.T) {
	g := unitGrid(t, 4, 3)

	testCases := []struct {
		name  string
		x, y  float64
		wantI int
		wantJ int
	}{
		{"origin", 0, 0, 0, 0},
		{"interior", 2.5, 1.2, 2, 1},
		{"max edge clamps", 4, 3, 3, 2},
		{"within epsilon below", -1e-9, 0, 0, 0},
		{"cell boundary", 1, 2, 1, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			i, j, err := g.CellOf(tc.x, tc.y)
			require.NoError(t, err)
			assert.Equal(t, tc.wantI, i)
			assert.Equal(t, tc.wantJ, j)
		})
	}
}

func TestCellOfOutOfDomain(t *testing.T) {
	g := unitGrid(t, 4, 3)

	for _, p := range [][2]float64{{-1, 0}, {0, 3.5}, {5, 5}} {
		_, _, err := g.CellOf(p[0], p[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, risk.ErrOutOfDomain))

		var oe *risk.OutOfDomainError
		require.True(t, errors.As(err, &oe))
		assert.Equal(t, p[0], oe.X)
	}

	loose := g.WithEpsilon(0.6)
	i, j, err := loose.CellOf(-0.5, 3.5)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.Equal(t, 2, j)
	assert.Equal(t, DefaultEpsilon, g.Epsilon, "WithEpsilon must not mutate the receiver")
}

func TestIndexRoundTrip(t *testing.T) {
	g := unitGrid(t, 7, 5)
	seen := make(map[int]bool)
	for j := 0; j < g.NY; j++ {
		for i := 0; i < g.NX; i++ {
			id := g.IndexOf(i, j)
			assert.False(t, seen[id], "id %d assigned twice", id)
			seen[id] = true
			gi, gj := g.CellAt(id)
			assert.Equal(t, i, gi)
			assert.Equal(t, j, gj)
		}
	}
	assert.Len(t, seen, g.Cells())
}

func TestCenters(t *testing.T) {
	g, err := NewGrid(BoundingBox{XMin: 100, XMax: 300, YMin: 0, YMax: 100}, 2, 1)
	require.NoError(t, err)

	centers := g.Centers(42)
	require.Len(t, centers, 2)
	assert.Equal(t, risk.Point{X: 150, Y: 50, T: 42}, centers[0])
	assert.Equal(t, risk.Point{X: 250, Y: 50, T: 42}, centers[1])

	for id, c := range centers {
		got, err := g.IDOf(c.X, c.Y)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestCount(t *testing.T) {
	g := unitGrid(t, 3, 3)
	m, err := g.Count([]risk.Point{{X: 0.5, Y: 0.5}, {X: 0.1, Y: 0.9}, {X: 2.5, Y: 2.5}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.At(0, 0))
	assert.Equal(t, 1, m.At(2, 2))
	assert.Equal(t, 3, m.Total())
	assert.Equal(t, 0, m.At(-1, 0))

	_, err = g.Count([]risk.Point{{X: 10, Y: 10}})
	assert.ErrorIs(t, err, risk.ErrOutOfDomain)
}

func TestSurfaceDensityAt(t *testing.T) {
	g := unitGrid(t, 2, 2)
	s := NewSurface(g)
	s.Values[g.IndexOf(1, 0)] = 3
	s.Values[g.IndexOf(0, 1)] = 7

	got, err := s.DensityAt(context.Background(), []risk.Point{
		{X: 1.5, Y: 0.5},
		{X: 0.5, Y: 1.5},
		{X: 0.5, Y: 0.5},
		{X: 50, Y: 50},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 7, 0, 0}, got)
	assert.Equal(t, 7.0, s.Max())
	assert.Equal(t, 10.0, s.Sum())
}

func TestCountMatrixValidate(t *testing.T) {
	m := NewCountMatrix(3, 2)
	assert.NoError(t, m.Validate())

	bad := &CountMatrix{NX: 3, NY: 2, Counts: make([]int, 5)}
	assert.Error(t, bad.Validate())

	c := m.Clone()
	c.Set(1, 1, 9)
	assert.Equal(t, 0, m.At(1, 1))
	assert.Equal(t, 9, c.At(1, 1))
}

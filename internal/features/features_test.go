package features

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/incident"
	"github.com/banshee-data/hotspot.report/internal/region"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

func testGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.NewGrid(grid.BoundingBox{XMin: 0, XMax: 10, YMin: 0, YMax: 10}, 10, 10)
	require.NoError(t, err)
	return g
}

func at(m time.Month, d int) time.Time { return time.Date(2017, m, d, 0, 0, 0, 0, time.UTC) }

func TestDefaultSpec(t *testing.T) {
	s := DefaultSpec(2017)
	assert.Len(t, s.FeatureMonths, 9)
	assert.Equal(t, time.January, s.FeatureMonths[0])
	assert.Equal(t, time.October, s.LabelMonth)
	assert.Equal(t, 7, s.MaxDepth)
}

func TestBuild(t *testing.T) {
	g := testGrid(t)
	set := incident.NewSet([]incident.Incident{
		{X: 5.5, Y: 5.5, Date: at(time.January, 3)},
		{X: 5.5, Y: 5.5, Date: at(time.January, 9)},
		{X: 0.5, Y: 0.5, Date: at(time.February, 1)},
		{X: 50, Y: 50, Date: at(time.February, 2)}, // outside grid, dropped
		{X: 5.5, Y: 6.5, Date: at(time.March, 1)},  // label month
	}, 2017)

	spec := Spec{
		Year:          2017,
		FeatureMonths: []time.Month{time.January, time.February},
		LabelMonth:    time.March,
		MaxDepth:      2,
	}
	table, err := Build(context.Background(), g, set, spec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"incidents_0/January", "incidents_1/January", "incidents_2/January",
		"incidents_0/February", "incidents_1/February", "incidents_2/February",
	}, table.Columns)
	require.Len(t, table.Rows, 100)

	center := g.IndexOf(5, 5)
	assert.Equal(t, []float64{2, 0, 0, 0, 0, 0}, table.Rows[center])
	above := g.IndexOf(5, 6)
	assert.Equal(t, []float64{0, 2, 0, 0, 0, 0}, table.Rows[above])
	corner := g.IndexOf(0, 0)
	assert.Equal(t, []float64{0, 0, 0, 1, 0, 0}, table.Rows[corner])

	// March incident at (5,6): layers 0..2 reach cells within Manhattan distance 2
	assert.Equal(t, 1.0, table.Labels[g.IndexOf(5, 6)])
	assert.Equal(t, 1.0, table.Labels[g.IndexOf(5, 4)])
	assert.Equal(t, 0.0, table.Labels[g.IndexOf(5, 3)])
	assert.Equal(t, 13, table.Positives())
}

func TestBuildRegionFilter(t *testing.T) {
	g := testGrid(t)
	spec := Spec{Year: 2017, FeatureMonths: []time.Month{time.January}, LabelMonth: time.February, MaxDepth: 1,
		Region: region.Box(grid.BoundingBox{XMin: 0, XMax: 5, YMin: 0, YMax: 10})}

	table, err := Build(context.Background(), g, incident.Set{}, spec)
	require.NoError(t, err)
	assert.Len(t, table.CellIDs, 50)
	for _, id := range table.CellIDs {
		i, _ := g.CellAt(id)
		assert.Less(t, i, 5)
	}

	_, err = Build(context.Background(), g, incident.Set{}, Spec{Year: 2017})
	assert.Error(t, err)
}

func TestCorrelationClassifier(t *testing.T) {
	rows := [][]float64{
		{0, 5}, {1, 5}, {0, 5}, {4, 5}, {5, 5}, {6, 5},
	}
	labels := []float64{0, 0, 0, 1, 1, 1}

	c := &CorrelationClassifier{}
	_, err := c.Predict(rows)
	assert.Error(t, err, "predict before fit")

	require.NoError(t, c.Fit(rows, labels))
	imp := c.FeatureImportances()
	assert.InDelta(t, 1.0, imp[0], 1e-12)
	assert.Zero(t, imp[1], "constant feature carries no weight")

	scores, err := c.Predict(rows)
	require.NoError(t, err)
	for k := 0; k < 3; k++ {
		assert.Less(t, scores[k], 0.5)
		assert.Greater(t, scores[k+3], 0.5)
	}

	assert.Error(t, c.Fit(rows, labels[:2]))
	_, err = c.Predict([][]float64{{1}})
	assert.Error(t, err)
}

func TestConfusion(t *testing.T) {
	c := NewConfusion([]float64{1, 1, 0, 0, 1}, []float64{0.9, 0.2, 0.95, 0.1, 0.5}, 0.5)
	assert.Equal(t, Confusion{TP: 2, FP: 1, FN: 1, TN: 1}, c)
	assert.InDelta(t, 2.0/3.0, c.Precision(), 1e-12)
	assert.InDelta(t, 2.0/3.0, c.Recall(), 1e-12)

	assert.Zero(t, Confusion{}.Precision())
	assert.Zero(t, Confusion{}.Recall())
}

func TestPredictedSurfaceAndHitRate(t *testing.T) {
	g := testGrid(t)
	ids := []int{g.IndexOf(0, 0), g.IndexOf(1, 0), g.IndexOf(2, 0), g.IndexOf(3, 0)}
	s, err := PredictedSurface(g, ids, []float64{0.95, 0.2, 0.91, 0.1})
	require.NoError(t, err)
	assert.Equal(t, 0.95, s.At(0, 0))
	assert.Zero(t, s.At(9, 9))

	heldOut := []risk.Point{{X: 0.5, Y: 0.5}, {X: 1.5, Y: 0.5}, {X: 2.5, Y: 0.2}, {X: 99, Y: 99}}
	hr, area, pai, err := HitRateAt(s, ids, heldOut, 0.9)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, hr, 1e-12)
	assert.InDelta(t, 0.5, area, 1e-12)
	assert.InDelta(t, 1.0, pai, 1e-12)

	_, err = PredictedSurface(g, ids, []float64{1})
	assert.Error(t, err)
	_, err = PredictedSurface(g, []int{1000}, []float64{1})
	assert.Error(t, err)

	// The off-grid incident stays in the denominator: a miss above zero, a
	// hit at zero.
	hr, area, _, err = HitRateAt(s, ids, heldOut, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, hr)
	assert.Equal(t, 1.0, area)
	hr, _, _, err = HitRateAt(s, ids, heldOut[3:], 0.9)
	require.NoError(t, err)
	assert.Zero(t, hr)

	_, _, pai, err = HitRateAt(s, ids, heldOut, 2)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(pai))
}

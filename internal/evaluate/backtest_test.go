package evaluate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/incident"
	"github.com/banshee-data/hotspot.report/internal/monitoring"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

func init() {
	monitoring.SetLogger(nil)
}

// recordingModel remembers the size of every training set and scores
// points by X.
type recordingModel struct {
	sizes []int
	fail  int
}

func (m *recordingModel) Name() string { return "recording" }

func (m *recordingModel) Fit(_ context.Context, train []risk.Point) (risk.Density, error) {
	m.sizes = append(m.sizes, len(train))
	if m.fail > 0 && len(m.sizes) == m.fail {
		return nil, errors.New("fit failed")
	}
	return xDensity, nil
}

func testFolds() []Fold {
	return []Fold{
		{Group: incident.PredictGroup{Index: 1}, Test: xs(1, 2)},
		{Group: incident.PredictGroup{Index: 2}, Test: xs(3)},
		{Group: incident.PredictGroup{Index: 3}, Test: xs(4, 5, 6)},
	}
}

func TestBacktestExpandsTrainingSet(t *testing.T) {
	g, err := grid.NewGrid(grid.BoundingBox{XMin: 0, XMax: 10, YMin: 0, YMax: 1}, 10, 1)
	require.NoError(t, err)

	m := &recordingModel{}
	initial := xs(0.5, 9.5)
	results, err := Backtest(context.Background(), m, initial, testFolds(), BacktestConfig{Steps: 10, Grid: g})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []int{2, 4, 5}, m.sizes)
	assert.Len(t, initial, 2, "initial set must not be modified")
	for k, r := range results {
		assert.Equal(t, k+1, r.Group.Index)
		assert.Equal(t, m.sizes[k], r.TrainCount)
		assert.Equal(t, 1.0, r.Curve.HR[0])
	}
	assert.Equal(t, 3, results[2].TestCount)
}

func TestBacktestDefaultReferenceGrid(t *testing.T) {
	m := &recordingModel{}
	initial := []risk.Point{{X: 0, Y: 0, T: 1}, {X: 10, Y: 5, T: 20}}
	results, err := Backtest(context.Background(), m, initial, testFolds()[:1], BacktestConfig{ReferenceBins: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 20.0, results[0].ReferenceT)
	assert.Equal(t, DefaultSteps, results[0].Curve.Len())
}

func TestBacktestErrors(t *testing.T) {
	_, err := Backtest(context.Background(), &recordingModel{}, nil, testFolds(), BacktestConfig{})
	assert.ErrorIs(t, err, risk.ErrEmptyInput)

	m := &recordingModel{fail: 2}
	_, err = Backtest(context.Background(), m, xs(1, 2), testFolds(), BacktestConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group 2")

	empty := []Fold{{Group: incident.PredictGroup{Index: 1}}}
	_, err = Backtest(context.Background(), &recordingModel{}, xs(1, 2), empty, BacktestConfig{})
	assert.ErrorIs(t, err, risk.ErrEmptyInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Backtest(ctx, &recordingModel{}, xs(1, 2), testFolds(), BacktestConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFolds(t *testing.T) {
	at := func(m time.Month, d int) time.Time { return time.Date(2017, m, d, 9, 0, 0, 0, time.UTC) }
	set := incident.NewSet([]incident.Incident{
		{X: 1, Date: at(time.October, 2)},
		{X: 2, Date: at(time.October, 30)},
		{X: 3, Date: at(time.November, 2)},
		{X: 4, Date: at(time.November, 9)},
		{X: 5, Date: at(time.December, 30)},
	}, 2017)

	schedule := incident.DefaultSchedule()
	schedule.Count = 2
	groups, err := schedule.Groups()
	require.NoError(t, err)

	initial, folds := Folds(set, groups)
	assert.Len(t, initial, 2)
	require.Len(t, folds, 2)
	assert.Equal(t, xs(3), stripT(folds[0].Test))
	assert.Equal(t, xs(4), stripT(folds[1].Test))

	none, nf := Folds(set, nil)
	assert.Nil(t, none)
	assert.Nil(t, nf)
}

func stripT(pts []risk.Point) []risk.Point {
	out := make([]risk.Point, len(pts))
	for k, p := range pts {
		out[k] = risk.Point{X: p.X}
	}
	return out
}

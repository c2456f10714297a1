package incident

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2017, m, d, 12, 0, 0, 0, time.UTC)
}

func TestNewSetSortsAndAssignsDayOffsets(t *testing.T) {
	s := NewSet([]Incident{
		{X: 1, Date: day(time.October, 3)},
		{X: 2, Date: day(time.January, 1)},
		{X: 3, Date: day(time.October, 1)},
	}, 2017)

	require.Len(t, s, 3)
	assert.Equal(t, []float64{2, 3, 1}, []float64{s[0].X, s[1].X, s[2].X})
	assert.Equal(t, []int{1, 274, 276}, []int{s[0].T, s[1].T, s[2].T})

	for k := 1; k < len(s); k++ {
		assert.LessOrEqual(t, s[k-1].T, s[k].T)
	}
}

func TestSetFilters(t *testing.T) {
	s := NewSet([]Incident{
		{X: 1, Y: 1, Date: day(time.September, 30), Category: "burglary"},
		{X: 5, Y: 5, Date: day(time.October, 1), Category: "theft"},
		{X: 50, Y: 5, Date: day(time.October, 15), Category: "burglary"},
		{X: 2, Y: 2, Date: day(time.November, 1), Category: "burglary"},
	}, 2017)

	oct := s.Between(Window{Start: day(time.October, 1), End: day(time.November, 1)})
	assert.Len(t, oct, 2)

	assert.Len(t, s.Month(2017, time.October), 2)
	assert.Len(t, s.Within(grid.BoundingBox{XMin: 0, XMax: 10, YMin: 0, YMax: 10}), 3)
	assert.Len(t, s.OfCategory("burglary"), 3)
	assert.Len(t, s.OfCategory(""), 4)

	before, after := s.Split(time.Date(2017, time.October, 1, 0, 0, 0, 0, time.UTC))
	assert.Len(t, before, 1)
	assert.Len(t, after, 3)

	pts := s.Points()
	assert.Equal(t, float64(s[0].T), pts[0].T)
}

func TestWindow(t *testing.T) {
	w := Window{Start: day(time.October, 1), End: day(time.October, 8)}
	assert.Equal(t, 7, w.Days())
	assert.True(t, w.Contains(time.Date(2017, 10, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2017, 10, 7, 23, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2017, 10, 8, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "[2017-10-01, 2017-10-08)", w.String())
}

func TestDefaultScheduleGroups(t *testing.T) {
	groups, err := DefaultSchedule().Groups()
	require.NoError(t, err)
	require.Len(t, groups, DefaultGroups)

	first := groups[0]
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, time.Date(2017, 10, 1, 0, 0, 0, 0, time.UTC), first.Train.Start)
	assert.Equal(t, time.Date(2017, 11, 1, 0, 0, 0, 0, time.UTC), first.Test.Start)
	assert.Equal(t, time.Date(2017, 11, 8, 0, 0, 0, 0, time.UTC), first.Test.End)

	last := groups[len(groups)-1]
	assert.Equal(t, time.Date(2017, 11, 19, 0, 0, 0, 0, time.UTC), last.Train.Start)
	assert.Equal(t, time.Date(2017, 12, 27, 0, 0, 0, 0, time.UTC), last.Test.End)

	for k := 1; k < len(groups); k++ {
		assert.Equal(t, 7, timeDays(groups[k-1].Test.Start, groups[k].Test.Start))
		assert.Equal(t, DefaultTrainDays, groups[k].Train.Days())
	}

	_, err = Schedule{TrainDays: 0, TestDays: 7, StepDays: 7, Count: 1}.Groups()
	assert.Error(t, err)
}

func timeDays(a, b time.Time) int { return int(b.Sub(a).Hours() / 24) }

func TestReadCSV(t *testing.T) {
	data := "date,category,x,y\n" +
		"2017-10-02,burglary,-10780000.5,3870000.25\n" +
		"2017-09-30T10:00:00Z,theft,-10770000,3860000\n"

	rows, err := ReadCSV(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, -10780000.5, rows[0].X)
	assert.Equal(t, 3870000.25, rows[0].Y)
	assert.Equal(t, "burglary", rows[0].Category)
	assert.Equal(t, time.September, rows[1].Date.Month())
}

func TestReadCSVErrors(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"missing column", "x,date\n1,2017-01-01\n"},
		{"bad number", "x,y,date\nabc,1,2017-01-01\n"},
		{"bad date", "x,y,date\n1,1,yesterday\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadCSV(context.Background(), strings.NewReader(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestReadCSVRejectsNonFiniteCoordinates(t *testing.T) {
	testCases := []struct {
		name string
		row  string
	}{
		{"nan x", "NaN,2,2017-10-02"},
		{"inf y", "2,+Inf,2017-10-02"},
		{"negative inf x", "-inf,2,2017-10-02"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := "x,y,date\n1,1,2017-10-01\n" + tc.row + "\n3,3,2017-10-03\n"
			rows, err := ReadCSV(context.Background(), strings.NewReader(data))
			require.ErrorIs(t, err, risk.ErrNonFinite)
			assert.Contains(t, err.Error(), "line 3")
			assert.Nil(t, rows)
		})
	}
}

func TestCSVSource(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	mem.WriteFile("incidents.csv", []byte("x,y,date,category\n"+
		"1,1,2017-10-05,burglary\n"+
		"2,2,2017-10-01,burglary\n"+
		"3,3,2017-10-03,theft\n"))

	src := CSVSource{FS: mem, Path: "incidents.csv", Category: "burglary", RefYear: 2017}
	set, err := src.Incidents(context.Background())
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, 2.0, set[0].X)
	assert.Equal(t, 274, set[0].T)

	_, err = CSVSource{FS: mem, Path: "nope.csv"}.Incidents(context.Background())
	assert.Error(t, err)
}

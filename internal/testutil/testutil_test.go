package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/incident"
)

func TestSyntheticIsReproducible(t *testing.T) {
	a := TwoHotspots(7).Incidents()
	b := TwoHotspots(7).Incidents()
	c := TwoHotspots(8).Incidents()

	require.Len(t, a, 600)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSyntheticStaysInBox(t *testing.T) {
	s := TwoHotspots(1)
	last := s.Start.AddDate(0, 0, s.Days)
	for _, in := range s.Incidents() {
		assert.True(t, in.X >= s.Box.XMin && in.X <= s.Box.XMax, "x=%v", in.X)
		assert.True(t, in.Y >= s.Box.YMin && in.Y <= s.Box.YMax, "y=%v", in.Y)
		assert.False(t, in.Date.Before(s.Start))
		assert.True(t, in.Date.Before(last))
	}
}

func TestSetAssignsDayOffsets(t *testing.T) {
	set := TwoHotspots(3).Set(2017)
	require.NotEmpty(t, set)
	// 1 October 2017 is day 274
	assert.GreaterOrEqual(t, set[0].T, 274)
	for k := 1; k < len(set); k++ {
		assert.False(t, set[k].Date.Before(set[k-1].Date))
	}
}

func TestRandomPoints(t *testing.T) {
	box := grid.BoundingBox{XMin: -5, XMax: 5, YMin: 10, YMax: 20}
	pts := RandomPoints(2, 50, box, 30)
	require.Len(t, pts, 50)
	for _, p := range pts {
		assert.True(t, box.Contains(p.X, p.Y))
		assert.True(t, p.T >= 0 && p.T < 30)
	}
	assert.Equal(t, pts, RandomPoints(2, 50, box, 30))
}

func TestIncidentCSVRoundTrip(t *testing.T) {
	s := TwoHotspots(4)
	s.Category = "theft"
	want := s.Incidents()[:20]

	fsys := fsutil.NewMemoryFileSystem()
	WriteIncidentCSV(t, fsys, "data/incidents.csv", want)

	set, err := incident.CSVSource{FS: fsys, Path: "data/incidents.csv", RefYear: 2017}.Incidents(context.Background())
	require.NoError(t, err)
	require.Len(t, set, len(want))
	for _, in := range set {
		assert.Equal(t, "theft", in.Category)
	}
}

func TestAssertNoError(t *testing.T) {
	fakeT := &testing.T{}
	AssertNoError(fakeT, nil)
	assert.False(t, fakeT.Failed())
}

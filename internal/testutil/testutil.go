// Package testutil provides shared fixtures for the estimator, evaluation
// and CLI tests: seeded synthetic incident sets and helpers to write them
// where the loaders expect them.
package testutil

import (
	"bytes"
	"encoding/csv"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/incident"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

// Cluster is a Gaussian blob of incidents around (X, Y).
type Cluster struct {
	X, Y   float64
	Spread float64
	Weight int
}

// Synthetic describes a reproducible incident set. Every incident falls on
// one of Days consecutive days starting at Start.
type Synthetic struct {
	Box      grid.BoundingBox
	Start    time.Time
	Days     int
	Clusters []Cluster
	// Background is the number of uniform incidents added on top of the
	// clusters.
	Background int
	Category   string
	Seed       uint64
}

// Incidents draws the set. Cluster draws outside Box are clamped to it.
func (s Synthetic) Incidents() []incident.Incident {
	r := rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))
	days := max(1, s.Days)
	var out []incident.Incident
	day := func() time.Time { return s.Start.AddDate(0, 0, r.IntN(days)) }

	for _, c := range s.Clusters {
		for range c.Weight {
			out = append(out, incident.Incident{
				X:        clamp(c.X+r.NormFloat64()*c.Spread, s.Box.XMin, s.Box.XMax),
				Y:        clamp(c.Y+r.NormFloat64()*c.Spread, s.Box.YMin, s.Box.YMax),
				Date:     day(),
				Category: s.Category,
			})
		}
	}
	for range s.Background {
		out = append(out, incident.Incident{
			X:        s.Box.XMin + r.Float64()*s.Box.Width(),
			Y:        s.Box.YMin + r.Float64()*s.Box.Height(),
			Date:     day(),
			Category: s.Category,
		})
	}
	return out
}

// Set draws the incidents and wraps them in a Set for refYear.
func (s Synthetic) Set(refYear int) incident.Set {
	return incident.NewSet(s.Incidents(), refYear)
}

// TwoHotspots is a 10km square with two dense clusters and light
// background noise, spread over October and November 2017.
func TwoHotspots(seed uint64) Synthetic {
	return Synthetic{
		Box:   grid.BoundingBox{XMin: 0, XMax: 10000, YMin: 0, YMax: 10000},
		Start: time.Date(2017, time.October, 1, 0, 0, 0, 0, time.UTC),
		Days:  61,
		Clusters: []Cluster{
			{X: 2500, Y: 2500, Spread: 300, Weight: 300},
			{X: 7000, Y: 6500, Spread: 500, Weight: 200},
		},
		Background: 100,
		Seed:       seed,
	}
}

// RandomPoints returns n points uniform over box with T in [0, maxT).
func RandomPoints(seed uint64, n int, box grid.BoundingBox, maxT float64) []risk.Point {
	r := rand.New(rand.NewPCG(seed, 1))
	out := make([]risk.Point, n)
	for k := range out {
		out[k] = risk.Point{
			X: box.XMin + r.Float64()*box.Width(),
			Y: box.YMin + r.Float64()*box.Height(),
			T: r.Float64() * maxT,
		}
	}
	return out
}

// IncidentCSV renders incidents in the format incident.ReadCSV accepts.
func IncidentCSV(incidents []incident.Incident) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"x", "y", "date", "category"})
	for _, in := range incidents {
		_ = w.Write([]string{
			strconv.FormatFloat(in.X, 'f', -1, 64),
			strconv.FormatFloat(in.Y, 'f', -1, 64),
			in.Date.Format(time.DateOnly),
			in.Category,
		})
	}
	w.Flush()
	return buf.Bytes()
}

// WriteIncidentCSV stores incidents as CSV at path in fsys.
func WriteIncidentCSV(t *testing.T, fsys *fsutil.MemoryFileSystem, path string, incidents []incident.Incident) {
	t.Helper()
	fsys.WriteFile(path, IncidentCSV(incidents))
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

// Package incident models historical incident records: ingest from CSV,
// day-offset derivation, date-window filtering and the rolling
// train/test schedule used by the backtest.
package incident

import (
	"fmt"
	"slices"
	"time"

	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/risk"
	"github.com/banshee-data/hotspot.report/internal/timeutil"
)

// Incident is one geolocated event. T is the day-of-year of Date counted
// from the set's reference year.
type Incident struct {
	X        float64
	Y        float64
	T        int
	Date     time.Time
	Category string
}

// Point returns the incident as a space-time query point.
func (in Incident) Point() risk.Point {
	return risk.Point{X: in.X, Y: in.Y, T: float64(in.T)}
}

// Set is an ordered collection of incidents, sorted by Date ascending.
type Set []Incident

// NewSet copies incidents, assigns T relative to 1 January of refYear and
// sorts by date. Ties keep their input order.
func NewSet(incidents []Incident, refYear int) Set {
	s := make(Set, len(incidents))
	copy(s, incidents)
	for k := range s {
		s[k].T = timeutil.DayOfYear(s[k].Date, refYear)
	}
	s.Sort()
	return s
}

// Sort orders the set by Date, stable on ties.
func (s Set) Sort() {
	slices.SortStableFunc(s, func(a, b Incident) int { return a.Date.Compare(b.Date) })
}

// Points converts the set into estimator input.
func (s Set) Points() []risk.Point {
	out := make([]risk.Point, len(s))
	for k, in := range s {
		out[k] = in.Point()
	}
	return out
}

// Between returns the incidents whose Date falls in w.
func (s Set) Between(w Window) Set {
	var out Set
	for _, in := range s {
		if w.Contains(in.Date) {
			out = append(out, in)
		}
	}
	return out
}

// Within returns the incidents inside box.
func (s Set) Within(box grid.BoundingBox) Set {
	var out Set
	for _, in := range s {
		if box.Contains(in.X, in.Y) {
			out = append(out, in)
		}
	}
	return out
}

// OfCategory returns the incidents labelled category. An empty category
// matches everything.
func (s Set) OfCategory(category string) Set {
	if category == "" {
		return s
	}
	var out Set
	for _, in := range s {
		if in.Category == category {
			out = append(out, in)
		}
	}
	return out
}

// Split partitions the set at cutoff: incidents strictly before it, and
// the rest.
func (s Set) Split(cutoff time.Time) (before, after Set) {
	k, _ := slices.BinarySearchFunc(s, cutoff, func(in Incident, t time.Time) int {
		return in.Date.Compare(t)
	})
	return s[:k:k], s[k:]
}

// Month returns the incidents dated in the given calendar month.
func (s Set) Month(year int, month time.Month) Set {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return s.Between(Window{Start: start, End: start.AddDate(0, 1, 0)})
}

// Window is the half-open date interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t is in [Start, End). Comparison is by calendar
// date so time-of-day and location do not move incidents across days.
func (w Window) Contains(t time.Time) bool {
	return timeutil.DaysBetween(w.Start, t) >= 0 && timeutil.DaysBetween(t, w.End) > 0
}

// Days returns the window length in whole days.
func (w Window) Days() int { return timeutil.DaysBetween(w.Start, w.End) }

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
}

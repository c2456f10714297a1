package report

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/banshee-data/hotspot.report/internal/evaluate"
)

// DefaultTargetArea is the area fraction at which groups are compared.
const DefaultTargetArea = 0.05

// Stat summarises one metric across groups.
type Stat struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P90    float64 `json:"p90"`
}

// Summary compares groups at a fixed area fraction.
type Summary struct {
	Model      string    `json:"model"`
	TargetArea float64   `json:"target_area"`
	HR         Stat      `json:"hr"`
	PAI        Stat      `json:"pai"`
	GroupHR    []float64 `json:"group_hr"`
	GroupPAI   []float64 `json:"group_pai"`
}

// Summarize interpolates every curve at area and aggregates HR and PAI.
// Groups whose curve does not reach area are skipped in the aggregates.
func Summarize(model string, results []evaluate.GroupResult, area float64) (*Summary, error) {
	if area < 0 || area > 1 {
		return nil, fmt.Errorf("summary: target area %g outside [0, 1]", area)
	}
	s := &Summary{
		Model:      model,
		TargetArea: area,
		GroupHR:    make([]float64, len(results)),
		GroupPAI:   make([]float64, len(results)),
	}
	var hrs, pais stats.Float64Data
	for i, r := range results {
		hr, pai := math.NaN(), math.NaN()
		if r.Curve != nil {
			hr, pai = r.Curve.At(area)
		}
		s.GroupHR[i], s.GroupPAI[i] = hr, pai
		if !math.IsNaN(hr) {
			hrs = append(hrs, hr)
		}
		if !math.IsNaN(pai) && !math.IsInf(pai, 0) {
			pais = append(pais, pai)
		}
	}
	var err error
	if s.HR, err = describe(hrs); err != nil {
		return nil, fmt.Errorf("summary hr: %w", err)
	}
	if s.PAI, err = describe(pais); err != nil {
		return nil, fmt.Errorf("summary pai: %w", err)
	}
	return s, nil
}

// describe returns a zero Stat with NaN fields for empty input.
func describe(data stats.Float64Data) (Stat, error) {
	if len(data) == 0 {
		nan := math.NaN()
		return Stat{Mean: nan, Median: nan, Min: nan, Max: nan, P90: nan}, nil
	}
	st := Stat{N: len(data)}
	var err error
	if st.Mean, err = stats.Mean(data); err != nil {
		return st, err
	}
	if st.Median, err = stats.Median(data); err != nil {
		return st, err
	}
	if st.Min, err = stats.Min(data); err != nil {
		return st, err
	}
	if st.Max, err = stats.Max(data); err != nil {
		return st, err
	}
	st.P90, err = stats.Percentile(data, 90)
	if errors.Is(err, stats.ErrBounds) {
		// too few points for the 90th percentile
		st.P90, err = st.Max, nil
	}
	return st, err
}

package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		kind error
	}{
		{"out of domain", &OutOfDomainError{X: 1, Y: 2}, ErrOutOfDomain},
		{"invalid bandwidth", &InvalidBandwidthError{Dim: "x", Value: -1}, ErrInvalidBandwidth},
		{"resample exhausted", &ResampleExhaustedError{Requested: 10, Produced: 3, Rounds: 5}, ErrResampleExhausted},
		{"non-finite", &NonFiniteError{Index: 2, Point: Point{X: math.NaN()}}, ErrNonFinite},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tc.err)
			assert.ErrorIs(t, wrapped, tc.kind)
			assert.NotEmpty(t, tc.err.Error())
		})
	}
}

func TestResampleExhaustedErrorAs(t *testing.T) {
	err := fmt.Errorf("fit: %w", &ResampleExhaustedError{Requested: 10, Produced: 3, Rounds: 5})

	var re *ResampleExhaustedError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 3, re.Produced)
	assert.Equal(t, "resample produced 3 of 10 points after 5 rounds", re.Error())
}

func TestBounds(t *testing.T) {
	_, _, err := Bounds(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	lo, hi, err := Bounds([]Point{{X: 1, Y: 5, T: 3}, {X: -2, Y: 7, T: 0}, {X: 4, Y: 6, T: 9}})
	require.NoError(t, err)
	assert.Equal(t, Point{X: -2, Y: 5, T: 0}, lo)
	assert.Equal(t, Point{X: 4, Y: 7, T: 9}, hi)
}

func TestDensityFunc(t *testing.T) {
	d := DensityFunc(func(_ context.Context, pts []Point) ([]float64, error) {
		out := make([]float64, len(pts))
		for i, p := range pts {
			out[i] = p.X
		}
		return out, nil
	})

	got, err := d.DensityAt(context.Background(), []Point{{X: 2}, {X: 3}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, got)
}

func TestCheckFinite(t *testing.T) {
	assert.NoError(t, CheckFinite(nil))
	assert.NoError(t, CheckFinite([]Point{{X: 1, Y: 2, T: 3}, {X: -1e300}}))

	testCases := []struct {
		name  string
		bad   Point
		index int
	}{
		{"nan x", Point{X: math.NaN()}, 1},
		{"inf y", Point{Y: math.Inf(1)}, 1},
		{"negative inf t", Point{T: math.Inf(-1)}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckFinite([]Point{{X: 1, Y: 1}, tc.bad, {X: math.NaN()}})
			require.ErrorIs(t, err, ErrNonFinite)
			var nf *NonFiniteError
			require.True(t, errors.As(err, &nf))
			assert.Equal(t, tc.index, nf.Index)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyRunConfig()
	require.NoError(t, cfg.Validate())

	box := cfg.GetBoundingBox()
	assert.Equal(t, defaultXMin, box.XMin)
	assert.Equal(t, defaultYMax, box.YMax)

	x, y := cfg.GetPromapBandwidth()
	assert.Equal(t, 1577.681, x)
	assert.Equal(t, 1167.16, y)

	_, _, _, ok := cfg.GetSTKDEBandwidth()
	assert.False(t, ok, "STKDE bandwidth defaults to cross validation")

	assert.Equal(t, 1500, cfg.GetCVSampleSize())
	assert.Equal(t, 64, cfg.GetMaxRounds())
	assert.Equal(t, 7, cfg.GetMaxDepth())
	assert.Equal(t, 100, cfg.GetSteps())
	assert.Equal(t, uint64(1), cfg.GetSeed())
	assert.Equal(t, 2017, cfg.GetRefYear())
	assert.Equal(t, runtime.NumCPU(), cfg.GetWorkers())
	assert.Equal(t, WebMercator, cfg.GetRegionProj())
	assert.Equal(t, "", cfg.GetRegionShapefile())

	s := cfg.GetSchedule()
	assert.Equal(t, time.Date(2017, 10, 1, 0, 0, 0, 0, time.UTC), s.Start)
	assert.Equal(t, 8, s.Count)
}

func TestDefaultRunConfigMatchesGetters(t *testing.T) {
	def := DefaultRunConfig()
	empty := EmptyRunConfig()
	require.NoError(t, def.Validate())

	assert.Equal(t, empty.GetBoundingBox(), def.GetBoundingBox())
	assert.Equal(t, empty.GetSchedule(), def.GetSchedule())
	assert.Equal(t, empty.GetSteps(), def.GetSteps())
	assert.Equal(t, empty.GetDBPath(), def.GetDBPath())
	assert.Equal(t, empty.GetOutputDir(), def.GetOutputDir())
	assert.Equal(t, empty.GetTargetArea(), def.GetTargetArea())
}

func TestDefaultGrid(t *testing.T) {
	g, err := EmptyRunConfig().Grid()
	require.NoError(t, err)
	// 69491m x 60012m at 100m cells
	assert.Equal(t, 695, g.NX)
	assert.Equal(t, 600, g.NY)
}

func TestLoadRunConfig(t *testing.T) {
	path := writeConfig(t, "run.json", `{
  "cell_size_x": 250,
  "cell_size_y": 250,
  "stkde_bandwidth_x": 800,
  "stkde_bandwidth_y": 600,
  "stkde_bandwidth_t": 35.549,
  "workers": 2,
  "schedule_start": "2017-11-05",
  "groups": 3,
  "category": "burglary"
}`)
	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)

	x, y, tt, ok := cfg.GetSTKDEBandwidth()
	require.True(t, ok)
	assert.Equal(t, []float64{800, 600, 35.549}, []float64{x, y, tt})
	assert.Equal(t, 2, cfg.GetWorkers())
	assert.Equal(t, "burglary", cfg.GetCategory())

	s := cfg.GetSchedule()
	assert.Equal(t, time.Date(2017, 11, 5, 0, 0, 0, 0, time.UTC), s.Start)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 31, s.TrainDays)

	// unset fields keep defaults
	px, _ := cfg.GetPromapBandwidth()
	assert.Equal(t, 1577.681, px)
}

func TestLoadRunConfigErrors(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "run.yaml", `{}`, ".json extension"},
		{"bad json", "run.json", `{"steps": `, "parse config JSON"},
		{"negative cell", "run.json", `{"cell_size_x": -1}`, "cell_size_x must be positive"},
		{"zero bandwidth", "run.json", `{"stkde_bandwidth_t": 0}`, "stkde_bandwidth_t must be positive"},
		{"inverted box", "run.json", `{"x_min": 10, "x_max": 5}`, "x_max"},
		{"one step", "run.json", `{"steps": 1}`, "steps must be at least 2"},
		{"zero groups", "run.json", `{"groups": 0}`, "groups must be at least 1"},
		{"negative resample", "run.json", `{"resample": -5}`, "resample must be non-negative"},
		{"target area", "run.json", `{"target_area": 1.5}`, "target_area"},
		{"bad date", "run.json", `{"schedule_start": "next tuesday"}`, "schedule_start"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadRunConfig(writeConfig(t, tc.file, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRunConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		body := `{"category": "` + strings.Repeat("x", 1<<20) + `"}`
		_, err := LoadRunConfig(writeConfig(t, "big.json", body))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})
}

func TestCheckedInDefaults(t *testing.T) {
	cfg, err := LoadRunConfig(filepath.Join("..", "..", DefaultConfigPath))
	require.NoError(t, err)
	assert.Equal(t, DefaultRunConfig().GetBoundingBox(), cfg.GetBoundingBox())
	assert.Equal(t, 100, cfg.GetSteps())
	assert.Equal(t, 8, cfg.GetSchedule().Count)
}

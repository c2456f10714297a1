package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/incident"
	"github.com/banshee-data/hotspot.report/internal/timeutil"
)

// DefaultConfigPath is the checked-in run configuration with the Dallas
// study parameters.
const DefaultConfigPath = "config/hotspot.defaults.json"

// WebMercator is the proj4 string of EPSG:3857, the CRS of the default
// bounding box.
const WebMercator = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m +nadgrids=@null +wktext +no_defs"

// Dallas limits in EPSG:3857.
const (
	defaultXMin = -10804957.65128928
	defaultXMax = -10735466.29163222
	defaultYMin = 3840201.8325116523
	defaultYMax = 3900214.267184315
)

// RunConfig holds every knob of a hotspot run. Fields are pointers so a
// partial JSON file leaves the rest at their defaults; use the Get*
// accessors to read values.
type RunConfig struct {
	// Study area
	XMin      *float64 `json:"x_min,omitempty"`
	XMax      *float64 `json:"x_max,omitempty"`
	YMin      *float64 `json:"y_min,omitempty"`
	YMax      *float64 `json:"y_max,omitempty"`
	CellSizeX *float64 `json:"cell_size_x,omitempty"`
	CellSizeY *float64 `json:"cell_size_y,omitempty"`

	// Region mask (optional)
	RegionShapefile *string `json:"region_shapefile,omitempty"`
	RegionProj      *string `json:"region_proj,omitempty"`
	RegionNameField *string `json:"region_name_field,omitempty"`

	// ProMap
	PromapBandwidthX *float64 `json:"promap_bandwidth_x,omitempty"`
	PromapBandwidthY *float64 `json:"promap_bandwidth_y,omitempty"`

	// STKDE; leaving any bandwidth unset selects it by cross validation.
	STKDEBandwidthX *float64 `json:"stkde_bandwidth_x,omitempty"`
	STKDEBandwidthY *float64 `json:"stkde_bandwidth_y,omitempty"`
	STKDEBandwidthT *float64 `json:"stkde_bandwidth_t,omitempty"`
	CVSampleSize    *int     `json:"cv_sample_size,omitempty"`
	MaxRounds       *int     `json:"max_rounds,omitempty"`
	Resample        *int     `json:"resample,omitempty"`
	Seed            *uint64  `json:"seed,omitempty"`

	// Layers
	MaxDepth *int `json:"max_depth,omitempty"`

	// Evaluation
	Steps         *int     `json:"steps,omitempty"`
	ReferenceBins *int     `json:"reference_bins,omitempty"`
	TargetArea    *float64 `json:"target_area,omitempty"`

	// Schedule
	RefYear       *int    `json:"ref_year,omitempty"`
	ScheduleStart *string `json:"schedule_start,omitempty"` // date like "2017-10-01"
	TrainDays     *int    `json:"train_days,omitempty"`
	TestDays      *int    `json:"test_days,omitempty"`
	StepDays      *int    `json:"step_days,omitempty"`
	Groups        *int    `json:"groups,omitempty"`
	Category      *string `json:"category,omitempty"`

	// Runtime
	Workers   *int    `json:"workers,omitempty"`
	DBPath    *string `json:"db_path,omitempty"`
	OutputDir *string `json:"output_dir,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyRunConfig returns a RunConfig with all fields nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// DefaultRunConfig returns a RunConfig with every field set to its default.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		XMin:             ptrFloat64(defaultXMin),
		XMax:             ptrFloat64(defaultXMax),
		YMin:             ptrFloat64(defaultYMin),
		YMax:             ptrFloat64(defaultYMax),
		CellSizeX:        ptrFloat64(100),
		CellSizeY:        ptrFloat64(100),
		RegionProj:       ptrString(WebMercator),
		PromapBandwidthX: ptrFloat64(1577.681),
		PromapBandwidthY: ptrFloat64(1167.16),
		CVSampleSize:     ptrInt(1500),
		MaxRounds:        ptrInt(64),
		Resample:         ptrInt(0),
		Seed:             ptrUint64(1),
		MaxDepth:         ptrInt(7),
		Steps:            ptrInt(100),
		ReferenceBins:    ptrInt(100),
		TargetArea:       ptrFloat64(0.05),
		RefYear:          ptrInt(2017),
		ScheduleStart:    ptrString("2017-10-01"),
		TrainDays:        ptrInt(incident.DefaultTrainDays),
		TestDays:         ptrInt(incident.DefaultTestDays),
		StepDays:         ptrInt(incident.DefaultStepDays),
		Groups:           ptrInt(incident.DefaultGroups),
		DBPath:           ptrString("hotspot.db"),
		OutputDir:        ptrString("out"),
	}
}

// LoadRunConfig loads a RunConfig from a JSON file. The path must end in
// .json and the file must be under 1MB. Omitted fields keep their
// defaults through the Get* accessors.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *RunConfig) Validate() error {
	if err := c.GetBoundingBox().Validate(); err != nil {
		return err
	}
	positive := []struct {
		name string
		v    *float64
	}{
		{"cell_size_x", c.CellSizeX},
		{"cell_size_y", c.CellSizeY},
		{"promap_bandwidth_x", c.PromapBandwidthX},
		{"promap_bandwidth_y", c.PromapBandwidthY},
		{"stkde_bandwidth_x", c.STKDEBandwidthX},
		{"stkde_bandwidth_y", c.STKDEBandwidthY},
		{"stkde_bandwidth_t", c.STKDEBandwidthT},
	}
	for _, f := range positive {
		if f.v != nil && !(*f.v > 0) {
			return fmt.Errorf("%s must be positive, got %g", f.name, *f.v)
		}
	}
	counts := []struct {
		name string
		v    *int
	}{
		{"cv_sample_size", c.CVSampleSize},
		{"max_rounds", c.MaxRounds},
		{"max_depth", c.MaxDepth},
		{"train_days", c.TrainDays},
		{"test_days", c.TestDays},
		{"step_days", c.StepDays},
		{"groups", c.Groups},
		{"reference_bins", c.ReferenceBins},
	}
	for _, f := range counts {
		if f.v != nil && *f.v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", f.name, *f.v)
		}
	}
	if c.Steps != nil && *c.Steps < 2 {
		return fmt.Errorf("steps must be at least 2, got %d", *c.Steps)
	}
	if c.Resample != nil && *c.Resample < 0 {
		return fmt.Errorf("resample must be non-negative, got %d", *c.Resample)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.TargetArea != nil && (*c.TargetArea < 0 || *c.TargetArea > 1) {
		return fmt.Errorf("target_area must be between 0 and 1, got %f", *c.TargetArea)
	}
	if c.ScheduleStart != nil && *c.ScheduleStart != "" {
		if _, err := timeutil.ParseDate(*c.ScheduleStart); err != nil {
			return fmt.Errorf("invalid schedule_start '%s': %w", *c.ScheduleStart, err)
		}
	}
	return nil
}

// GetBoundingBox returns the study area.
func (c *RunConfig) GetBoundingBox() grid.BoundingBox {
	return grid.BoundingBox{
		XMin: getFloat(c.XMin, defaultXMin),
		XMax: getFloat(c.XMax, defaultXMax),
		YMin: getFloat(c.YMin, defaultYMin),
		YMax: getFloat(c.YMax, defaultYMax),
	}
}

// Grid builds the study grid from the bounding box and cell sizes.
func (c *RunConfig) Grid() (*grid.Grid, error) {
	return grid.NewGridWithCellSize(c.GetBoundingBox(), getFloat(c.CellSizeX, 100), getFloat(c.CellSizeY, 100))
}

// GetPromapBandwidth returns the ProMap spatial bandwidths.
func (c *RunConfig) GetPromapBandwidth() (x, y float64) {
	return getFloat(c.PromapBandwidthX, 1577.681), getFloat(c.PromapBandwidthY, 1167.16)
}

// GetSTKDEBandwidth returns the fixed STKDE bandwidth, or ok=false when it
// should be selected by cross validation.
func (c *RunConfig) GetSTKDEBandwidth() (x, y, t float64, ok bool) {
	if c.STKDEBandwidthX == nil || c.STKDEBandwidthY == nil || c.STKDEBandwidthT == nil {
		return 0, 0, 0, false
	}
	return *c.STKDEBandwidthX, *c.STKDEBandwidthY, *c.STKDEBandwidthT, true
}

// GetRegionShapefile returns the shapefile path, or "" for no mask.
func (c *RunConfig) GetRegionShapefile() string { return getString(c.RegionShapefile, "") }

// GetRegionProj returns the proj4 string region polygons are projected to.
func (c *RunConfig) GetRegionProj() string { return getString(c.RegionProj, WebMercator) }

// GetRegionNameField returns the attribute used to name region polygons.
func (c *RunConfig) GetRegionNameField() string { return getString(c.RegionNameField, "") }

func (c *RunConfig) GetCVSampleSize() int { return getInt(c.CVSampleSize, 1500) }
func (c *RunConfig) GetMaxRounds() int    { return getInt(c.MaxRounds, 64) }
func (c *RunConfig) GetResample() int     { return getInt(c.Resample, 0) }
func (c *RunConfig) GetMaxDepth() int     { return getInt(c.MaxDepth, 7) }
func (c *RunConfig) GetSteps() int        { return getInt(c.Steps, 100) }
func (c *RunConfig) GetReferenceBins() int {
	return getInt(c.ReferenceBins, 100)
}

// GetSeed returns the random seed.
func (c *RunConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetTargetArea returns the area fraction used for summaries.
func (c *RunConfig) GetTargetArea() float64 { return getFloat(c.TargetArea, 0.05) }

// GetRefYear returns the year whose January 1st is day 1 of the time axis.
func (c *RunConfig) GetRefYear() int { return getInt(c.RefYear, 2017) }

// GetCategory returns the incident category filter; "" keeps everything.
func (c *RunConfig) GetCategory() string { return getString(c.Category, "") }

// GetSchedule returns the backtest group schedule.
func (c *RunConfig) GetSchedule() incident.Schedule {
	s := incident.DefaultSchedule()
	if c.ScheduleStart != nil && *c.ScheduleStart != "" {
		if t, err := timeutil.ParseDate(*c.ScheduleStart); err == nil {
			s.Start = timeutil.Date(t)
		}
	}
	s.TrainDays = getInt(c.TrainDays, s.TrainDays)
	s.TestDays = getInt(c.TestDays, s.TestDays)
	s.StepDays = getInt(c.StepDays, s.StepDays)
	s.Count = getInt(c.Groups, s.Count)
	return s
}

// GetWorkers returns the worker count; unset or 0 means one per CPU.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetDBPath returns the sqlite database path.
func (c *RunConfig) GetDBPath() string { return getString(c.DBPath, "hotspot.db") }

// GetOutputDir returns the artifact directory.
func (c *RunConfig) GetOutputDir() string { return getString(c.OutputDir, "out") }

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getString(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

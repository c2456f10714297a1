package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/hotspot.report/internal/config"
	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/incident"
	"github.com/banshee-data/hotspot.report/internal/monitoring"
	"github.com/banshee-data/hotspot.report/internal/region"
	"github.com/banshee-data/hotspot.report/internal/store"
)

var logf = monitoring.Prefixed("hotspot")

// commonFlags are shared by every subcommand that loads incidents.
type commonFlags struct {
	configPath string
	incidents  string
	dbPath     string
	outDir     string
	category   string
	workers    int
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", os.Getenv("HOTSPOT_CONFIG"), "Run configuration JSON")
	fs.StringVar(&c.incidents, "incidents", os.Getenv("HOTSPOT_INCIDENTS"), "Incident CSV; empty reads the database")
	fs.StringVar(&c.dbPath, "db", os.Getenv("HOTSPOT_DB"), "sqlite database path (overrides config)")
	fs.StringVar(&c.outDir, "out", os.Getenv("HOTSPOT_OUT"), "Artifact directory (overrides config)")
	fs.StringVar(&c.category, "category", "", "Keep only this incident category (overrides config)")
	fs.IntVar(&c.workers, "workers", -1, "Worker goroutines, 0 for one per CPU (overrides config)")
}

// env is everything a subcommand needs after flag parsing.
type env struct {
	cfg    *config.RunConfig
	grid   *grid.Grid
	region region.Region
	fsys   fsutil.FileSystem
	flags  commonFlags
}

// load resolves the configuration and applies flag overrides.
func (c *commonFlags) load() (*env, error) {
	cfg := config.EmptyRunConfig()
	if c.configPath != "" {
		var err error
		if cfg, err = config.LoadRunConfig(c.configPath); err != nil {
			return nil, err
		}
	}
	if c.dbPath != "" {
		cfg.DBPath = &c.dbPath
	}
	if c.outDir != "" {
		cfg.OutputDir = &c.outDir
	}
	if c.category != "" {
		cfg.Category = &c.category
	}
	if c.workers >= 0 {
		cfg.Workers = &c.workers
	}

	g, err := cfg.Grid()
	if err != nil {
		return nil, fmt.Errorf("study grid: %w", err)
	}
	e := &env{cfg: cfg, grid: g, fsys: fsutil.OSFileSystem{}, flags: *c}
	if shp := cfg.GetRegionShapefile(); shp != "" {
		polys, err := region.LoadShapefile(shp, cfg.GetRegionProj(), cfg.GetRegionNameField())
		if err != nil {
			return nil, err
		}
		logf("region %s: %d polygons", shp, polys.Len())
		e.region = polys
	}
	return e, nil
}

// openStore opens the configured database, applying migrations.
func (e *env) openStore() (*store.Store, error) {
	return store.Open(e.cfg.GetDBPath())
}

// incidents loads the incident set from the CSV flag or the database.
func (e *env) incidents(ctx context.Context) (incident.Set, error) {
	var src incident.Source
	if e.flags.incidents != "" {
		src = incident.CSVSource{FS: e.fsys, Path: e.flags.incidents, Category: e.cfg.GetCategory(), RefYear: e.cfg.GetRefYear()}
	} else {
		db, err := e.openStore()
		if err != nil {
			return nil, err
		}
		defer db.Close()
		src = store.IncidentSource{Store: db, Category: e.cfg.GetCategory(), RefYear: e.cfg.GetRefYear()}
	}
	set, err := src.Incidents(ctx)
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no incidents loaded")
	}
	logf("loaded %d incidents (%s .. %s)", len(set),
		set[0].Date.Format("2006-01-02"), set[len(set)-1].Date.Format("2006-01-02"))
	return set, nil
}

// printKV writes one aligned result line.
func printKV(w io.Writer, key string, value any) {
	fmt.Fprintf(w, "%-14s %v\n", key+":", value)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/banshee-data/hotspot.report/internal/evaluate"
	"github.com/banshee-data/hotspot.report/internal/features"
	"github.com/banshee-data/hotspot.report/internal/incident"
	"github.com/banshee-data/hotspot.report/internal/monitoring"
	"github.com/banshee-data/hotspot.report/internal/promap"
	"github.com/banshee-data/hotspot.report/internal/report"
	"github.com/banshee-data/hotspot.report/internal/risk"
	"github.com/banshee-data/hotspot.report/internal/stkde"
	"github.com/banshee-data/hotspot.report/internal/store"
	"github.com/banshee-data/hotspot.report/internal/timeutil"
)

func runIngest(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if common.incidents == "" {
		return fmt.Errorf("ingest: -incidents is required: %w", errUsage)
	}
	e, err := common.load()
	if err != nil {
		return err
	}
	set, err := e.incidents(ctx)
	if err != nil {
		return err
	}
	db, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.InsertIncidents(ctx, set)
	if err != nil {
		return err
	}
	printKV(stdout, "inserted", n)
	printKV(stdout, "database", e.cfg.GetDBPath())
	return nil
}

// splitAt returns the training incidents before the first test window and
// the test incidents inside it.
func splitAt(e *env, set incident.Set, cutoff string) (train incident.Set, test incident.Set, w incident.Window, err error) {
	groups, err := e.cfg.GetSchedule().Groups()
	if err != nil {
		return nil, nil, w, err
	}
	w = groups[0].Test
	if cutoff != "" {
		t, err := timeutil.ParseDate(cutoff)
		if err != nil {
			return nil, nil, w, err
		}
		start := timeutil.Date(t)
		w = incident.Window{Start: start, End: start.AddDate(0, 0, w.Days())}
	}
	train, _ = set.Split(w.Start)
	return train, set.Between(w), w, nil
}

// scoreWindow evaluates d on test and prints HR and PAI at the target area.
func scoreWindow(ctx context.Context, e *env, stdout io.Writer, d risk.Density, train, test []risk.Point) error {
	if len(test) == 0 {
		printKV(stdout, "test", "no incidents in test window, skipping score")
		return nil
	}
	var t float64
	for _, p := range train {
		t = math.Max(t, p.T)
	}
	ref := evaluate.ReferencePoints(e.grid, t, e.region)
	curve, err := evaluate.Evaluate(ctx, d, test, ref, e.cfg.GetSteps())
	if err != nil {
		return err
	}
	area := e.cfg.GetTargetArea()
	hr, pai := curve.At(area)
	printKV(stdout, fmt.Sprintf("hr@%g", area), fmt.Sprintf("%.4f", hr))
	printKV(stdout, fmt.Sprintf("pai@%g", area), fmt.Sprintf("%.4f", pai))
	return nil
}

func runPromap(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("promap", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	cutoff := fs.String("cutoff", "", "First test day (default: first scheduled test window)")
	save := fs.String("save", "", "Persist the surface under this name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := common.load()
	if err != nil {
		return err
	}
	set, err := e.incidents(ctx)
	if err != nil {
		return err
	}
	train, test, w, err := splitAt(e, set, *cutoff)
	if err != nil {
		return err
	}

	bx, by := e.cfg.GetPromapBandwidth()
	est, err := promap.NewEstimator(e.grid, promap.Bandwidth{X: bx, Y: by}, promap.WithWorkers(e.cfg.GetWorkers()))
	if err != nil {
		return err
	}
	surface, err := est.Fit(ctx, train.Points())
	if err != nil {
		return err
	}

	printKV(stdout, "train", len(train))
	printKV(stdout, "test window", w)
	printKV(stdout, "cells", fmt.Sprintf("%dx%d", e.grid.NX, e.grid.NY))
	printKV(stdout, "max risk", fmt.Sprintf("%.4f", surface.Max()))
	if err := scoreWindow(ctx, e, stdout, surface, train.Points(), test.Points()); err != nil {
		return err
	}

	path, err := report.SurfacePNG(e.fsys, e.cfg.GetOutputDir(), "promap_surface.png", "ProMap "+w.String(), surface)
	if err != nil {
		return err
	}
	printKV(stdout, "heatmap", path)

	if *save != "" {
		db, err := e.openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveSurface(ctx, *save, surface); err != nil {
			return err
		}
		printKV(stdout, "saved", *save)
	}
	return nil
}

// stkdeModel builds the STKDE model from the configuration.
func stkdeModel(e *env, resample int) stkde.Model {
	opts := []stkde.Option{
		stkde.WithSeed(e.cfg.GetSeed()),
		stkde.WithWorkers(e.cfg.GetWorkers()),
		stkde.WithMaxRounds(e.cfg.GetMaxRounds()),
		stkde.WithCVSampleSize(e.cfg.GetCVSampleSize()),
	}
	if e.region != nil {
		opts = append(opts, stkde.WithRegion(e.region))
	}
	m := stkde.Model{Resample: resample, Options: opts}
	if x, y, t, ok := e.cfg.GetSTKDEBandwidth(); ok {
		m.Bandwidth = &stkde.Bandwidth{X: x, Y: y, T: t}
	}
	return m
}

func runSTKDE(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stkde", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	cutoff := fs.String("cutoff", "", "First test day (default: first scheduled test window)")
	resample := fs.Int("resample", -1, "Draw this many points inside the region (overrides config)")
	save := fs.String("save", "", "Persist the gridded density at the cutoff under this name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := common.load()
	if err != nil {
		return err
	}
	if *resample >= 0 {
		e.cfg.Resample = resample
	}
	set, err := e.incidents(ctx)
	if err != nil {
		return err
	}
	train, test, w, err := splitAt(e, set, *cutoff)
	if err != nil {
		return err
	}

	m := stkdeModel(e, 0)
	done := monitoring.Timed("STKDE", "fit")
	kde, err := stkde.Fit(ctx, train.Points(), m.Bandwidth, m.Options...)
	done()
	if err != nil {
		return err
	}
	printKV(stdout, "train", len(train))
	printKV(stdout, "test window", w)
	printKV(stdout, "bandwidth", kde.Bandwidth())

	density := risk.Density(kde)
	if n := e.cfg.GetResample(); n > 0 {
		pts, err := kde.Resample(ctx, n)
		if err != nil {
			return err
		}
		bw := kde.Bandwidth()
		if kde, err = stkde.Fit(ctx, pts, &bw, m.Options...); err != nil {
			return err
		}
		density = kde
		printKV(stdout, "resampled", len(pts))
	}
	if err := scoreWindow(ctx, e, stdout, density, train.Points(), test.Points()); err != nil {
		return err
	}

	if *save != "" {
		surface, err := gridDensity(ctx, e, density, float64(timeutil.DayOfYear(w.Start, e.cfg.GetRefYear())))
		if err != nil {
			return err
		}
		db, err := e.openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveSurface(ctx, *save, surface); err != nil {
			return err
		}
		printKV(stdout, "saved", *save)
	}
	return nil
}

func runLayers(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("layers", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	monthName := fs.String("month", "October", "Calendar month to count")
	year := fs.Int("year", 0, "Year (default: config ref_year)")
	depth := fs.Int("depth", 0, "Deepest ring (default: config max_depth)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := parseMonth(*monthName)
	if err != nil {
		return err
	}
	e, err := common.load()
	if err != nil {
		return err
	}
	if *year == 0 {
		*year = e.cfg.GetRefYear()
	}
	if *depth == 0 {
		*depth = e.cfg.GetMaxDepth()
	}
	set, err := e.incidents(ctx)
	if err != nil {
		return err
	}

	layers, err := features.MonthlyLayers(ctx, e.grid, set, *year, month, *depth, e.cfg.GetWorkers())
	if err != nil {
		return err
	}
	db, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	for d := 0; d <= layers.MaxDepth(); d++ {
		m, err := layers.Depth(d)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("layers/%d-%02d/d%d", *year, int(month), d)
		if err := db.SaveMatrix(ctx, name, m); err != nil {
			return err
		}
		printKV(stdout, fmt.Sprintf("depth %d", d), fmt.Sprintf("total=%d name=%s", m.Total(), name))
	}
	return nil
}

func parseMonth(s string) (time.Month, error) {
	for m := time.January; m <= time.December; m++ {
		if s == m.String() || s == m.String()[:3] || s == fmt.Sprint(int(m)) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

func runClassify(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	threshold := fs.Float64("threshold", 0.5, "Score threshold for the confusion matrix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := common.load()
	if err != nil {
		return err
	}
	set, err := e.incidents(ctx)
	if err != nil {
		return err
	}

	spec := features.DefaultSpec(e.cfg.GetRefYear())
	spec.MaxDepth = e.cfg.GetMaxDepth()
	spec.Workers = e.cfg.GetWorkers()
	spec.Region = e.region
	table, err := features.Build(ctx, e.grid, set, spec)
	if err != nil {
		return err
	}
	var clf features.Classifier = &features.CorrelationClassifier{}
	if err := clf.Fit(table.Rows, table.Labels); err != nil {
		return err
	}
	scores, err := clf.Predict(table.Rows)
	if err != nil {
		return err
	}
	conf := features.NewConfusion(table.Labels, scores, *threshold)

	surface, err := features.PredictedSurface(e.grid, table.CellIDs, scores)
	if err != nil {
		return err
	}
	heldOut := set.Month(spec.Year, spec.LabelMonth).Points()
	hr, area, pai, err := features.HitRateAt(surface, table.CellIDs, heldOut, *threshold)
	if err != nil {
		return err
	}

	printKV(stdout, "cells", len(table.CellIDs))
	printKV(stdout, "positives", table.Positives())
	printKV(stdout, "precision", fmt.Sprintf("%.4f", conf.Precision()))
	printKV(stdout, "recall", fmt.Sprintf("%.4f", conf.Recall()))
	printKV(stdout, "hr", fmt.Sprintf("%.4f", hr))
	printKV(stdout, "area", fmt.Sprintf("%.4f", area))
	printKV(stdout, "pai", fmt.Sprintf("%.4f", pai))
	return nil
}

func runRuns(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := common.load()
	if err != nil {
		return err
	}
	db, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(stdout, "%s  %-6s  groups=%d  %s\n", r.ID, r.Model, r.Groups, r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runMigrate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", "hotspot.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("migrate: expected one of up, down, version: %w", errUsage)
	}
	db, err := store.OpenNoMigrate(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch fs.Arg(0) {
	case "up":
		if err := db.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := db.MigrateDown(); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("migrate: unknown action %q: %w", fs.Arg(0), errUsage)
	}
	v, dirty, err := db.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "schema version %d (dirty=%v)\n", v, dirty)
	return nil
}

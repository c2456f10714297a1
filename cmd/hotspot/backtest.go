package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/banshee-data/hotspot.report/internal/evaluate"
	"github.com/banshee-data/hotspot.report/internal/grid"
	"github.com/banshee-data/hotspot.report/internal/monitoring"
	"github.com/banshee-data/hotspot.report/internal/promap"
	"github.com/banshee-data/hotspot.report/internal/report"
	"github.com/banshee-data/hotspot.report/internal/risk"
	"github.com/banshee-data/hotspot.report/internal/store"
	"github.com/banshee-data/hotspot.report/internal/version"
)

func runBacktest(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	modelName := fs.String("model", "promap", "Estimator to evaluate: promap or stkde")
	resample := fs.Int("resample", -1, "STKDE resample size (overrides config)")
	noStore := fs.Bool("no-store", false, "Do not persist the run")
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

	var model evaluate.Model
	params := map[string]any{"version": version.Version, "steps": e.cfg.GetSteps()}
	switch *modelName {
	case "promap":
		bx, by := e.cfg.GetPromapBandwidth()
		est, err := promap.NewEstimator(e.grid, promap.Bandwidth{X: bx, Y: by}, promap.WithWorkers(e.cfg.GetWorkers()))
		if err != nil {
			return err
		}
		model = promap.Model{Estimator: est}
		params["bandwidth_x"], params["bandwidth_y"] = bx, by
		params["cell_size"] = []float64{e.grid.HX, e.grid.HY}
	case "stkde":
		m := stkdeModel(e, e.cfg.GetResample())
		model = m
		if m.Bandwidth != nil {
			params["bandwidth"] = m.Bandwidth.String()
		}
		params["resample"] = m.Resample
		params["seed"] = e.cfg.GetSeed()
	default:
		return fmt.Errorf("backtest: unknown model %q: %w", *modelName, errUsage)
	}

	set, err := e.incidents(ctx)
	if err != nil {
		return err
	}
	groups, err := e.cfg.GetSchedule().Groups()
	if err != nil {
		return err
	}
	initial, folds := evaluate.Folds(set, groups)

	done := monitoring.Timed("Backtest", model.Name())
	results, err := evaluate.Backtest(ctx, model, initial, folds, evaluate.BacktestConfig{
		Steps:         e.cfg.GetSteps(),
		Grid:          e.grid,
		ReferenceBins: e.cfg.GetReferenceBins(),
		Region:        e.region,
	})
	done()
	if err != nil {
		return err
	}

	sum, err := report.Summarize(model.Name(), results, e.cfg.GetTargetArea())
	if err != nil {
		return err
	}
	for i, r := range results {
		fmt.Fprintf(stdout, "group %d  %s  train=%d test=%d  hr=%.4f pai=%.4f\n",
			r.Group.Index, r.Group.Test, r.TrainCount, r.TestCount, sum.GroupHR[i], sum.GroupPAI[i])
	}
	printKV(stdout, "mean hr", fmt.Sprintf("%.4f", sum.HR.Mean))
	printKV(stdout, "mean pai", fmt.Sprintf("%.4f", sum.PAI.Mean))

	if err := writeReports(e, *modelName, sum, results); err != nil {
		return err
	}

	if *noStore {
		return nil
	}
	db, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	run := &store.Run{Model: model.Name(), Params: params, Groups: results}
	if err := db.SaveRun(ctx, run); err != nil {
		return err
	}
	printKV(stdout, "run", run.ID)
	return nil
}

// writeReports renders every artifact of a backtest into the output dir.
func writeReports(e *env, prefix string, sum *report.Summary, results []evaluate.GroupResult) error {
	dir := e.cfg.GetOutputDir()
	if _, err := report.CurvePNGs(e.fsys, dir, prefix, results); err != nil {
		return err
	}
	if _, err := report.HTMLReport(e.fsys, dir, prefix, results, nil); err != nil {
		return err
	}
	if _, err := report.CurvesCSV(e.fsys, dir, prefix, results); err != nil {
		return err
	}
	if _, err := report.Workbook(e.fsys, dir, prefix, sum, results); err != nil {
		return err
	}
	logf("reports written to %s", dir)
	return nil
}

// gridDensity evaluates d at every cell center of the study grid at time t.
func gridDensity(ctx context.Context, e *env, d risk.Density, t float64) (*grid.Surface, error) {
	s := grid.NewSurface(e.grid)
	vals, err := d.DensityAt(ctx, e.grid.Centers(t))
	if err != nil {
		return nil, err
	}
	copy(s.Values, vals)
	return s, nil
}

package report

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/hotspot.report/internal/evaluate"
	"github.com/banshee-data/hotspot.report/internal/fsutil"
)

const summarySheet = "Summary"

// Workbook writes <prefix>.xlsx: a Summary sheet with one row per group
// and one sheet per group holding its full curve.
func Workbook(fsys fsutil.FileSystem, dir, prefix string, sum *Summary, results []evaluate.GroupResult) (string, error) {
	if sum == nil || len(results) == 0 {
		return "", fmt.Errorf("workbook: nothing to write")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return "", fmt.Errorf("workbook: %w", err)
	}
	if err := writeSummarySheet(f, sum, results); err != nil {
		return "", err
	}
	for _, r := range results {
		if err := writeGroupSheet(f, r); err != nil {
			return "", err
		}
	}
	return fsutil.WriteArtifact(fsys, dir, prefix+".xlsx", func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

func writeSummarySheet(f *excelize.File, sum *Summary, results []evaluate.GroupResult) error {
	rows := [][]interface{}{
		{"model", sum.Model},
		{"target_area", sum.TargetArea},
		{},
		{"group", "train", "test", "train_count", "test_count", "hr", "pai"},
	}
	for i, r := range results {
		rows = append(rows, []interface{}{
			r.Group.Index, r.Group.Train.String(), r.Group.Test.String(),
			r.TrainCount, r.TestCount, cellValue(sum.GroupHR[i]), cellValue(sum.GroupPAI[i]),
		})
	}
	rows = append(rows, []interface{}{},
		[]interface{}{"metric", "n", "mean", "median", "min", "max", "p90"},
		statRow("hr", sum.HR),
		statRow("pai", sum.PAI),
	)
	return setRows(f, summarySheet, rows)
}

func writeGroupSheet(f *excelize.File, r evaluate.GroupResult) error {
	name := fmt.Sprintf("Group %d", r.Group.Index)
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("workbook sheet %s: %w", name, err)
	}
	rows := [][]interface{}{{"threshold", "hr", "area", "pai"}}
	if r.Curve != nil {
		for k := 0; k < r.Curve.Len(); k++ {
			rows = append(rows, []interface{}{
				r.Curve.Thresholds[k], r.Curve.HR[k], r.Curve.Area[k], cellValue(r.Curve.PAI[k]),
			})
		}
	}
	return setRows(f, name, rows)
}

func statRow(name string, s Stat) []interface{} {
	return []interface{}{name, s.N, cellValue(s.Mean), cellValue(s.Median), cellValue(s.Min), cellValue(s.Max), cellValue(s.P90)}
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("workbook %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cellValue leaves NaN and Inf cells empty.
func cellValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

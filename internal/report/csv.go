package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/banshee-data/hotspot.report/internal/evaluate"
	"github.com/banshee-data/hotspot.report/internal/fsutil"
)

var curveHeader = []string{"group", "train_start", "train_end", "test_start", "test_end", "threshold", "hr", "area", "pai"}

// WriteCurvesCSV writes one row per group and threshold. A NaN PAI is
// written as an empty field.
func WriteCurvesCSV(w io.Writer, results []evaluate.GroupResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(curveHeader); err != nil {
		return err
	}
	for _, r := range results {
		if r.Curve == nil {
			continue
		}
		g := r.Group
		for k := 0; k < r.Curve.Len(); k++ {
			row := []string{
				strconv.Itoa(g.Index),
				g.Train.Start.Format(dateLayout),
				g.Train.End.Format(dateLayout),
				g.Test.Start.Format(dateLayout),
				g.Test.End.Format(dateLayout),
				formatFloat(r.Curve.Thresholds[k]),
				formatFloat(r.Curve.HR[k]),
				formatFloat(r.Curve.Area[k]),
				formatFloat(r.Curve.PAI[k]),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// CurvesCSV writes <prefix>_curves.csv under dir.
func CurvesCSV(fsys fsutil.FileSystem, dir, prefix string, results []evaluate.GroupResult) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("curves csv: no group results")
	}
	return fsutil.WriteArtifact(fsys, dir, prefix+"_curves.csv", func(w io.Writer) error {
		return WriteCurvesCSV(w, results)
	})
}

const dateLayout = "2006-01-02"

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

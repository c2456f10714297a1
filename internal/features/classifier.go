package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Classifier is a black-box per-cell model. Predict returns one score per
// row; higher means more likely dangerous.
type Classifier interface {
	Fit(rows [][]float64, labels []float64) error
	Predict(rows [][]float64) ([]float64, error)
	FeatureImportances() []float64
}

// CorrelationClassifier is a linear baseline: each feature is standardised
// and weighted by its positive correlation with the label, and the score
// is the weighted sum squashed into [0, 1]. It exists so the feature
// pipeline can be scored end to end without an external ensemble.
type CorrelationClassifier struct {
	mean    []float64
	std     []float64
	weights []float64
}

// Fit learns per-feature weights.
func (c *CorrelationClassifier) Fit(rows [][]float64, labels []float64) error {
	if len(rows) == 0 || len(rows) != len(labels) {
		return fmt.Errorf("classifier fit: %d rows, %d labels", len(rows), len(labels))
	}
	width := len(rows[0])
	c.mean = make([]float64, width)
	c.std = make([]float64, width)
	c.weights = make([]float64, width)

	col := make([]float64, len(rows))
	for f := 0; f < width; f++ {
		for k, row := range rows {
			if len(row) != width {
				return fmt.Errorf("classifier fit: row %d has %d features, want %d", k, len(row), width)
			}
			col[k] = row[f]
		}
		c.mean[f], c.std[f] = stat.MeanStdDev(col, nil)
		if !(c.std[f] > 0) {
			continue
		}
		r := stat.Correlation(col, labels, nil)
		if r > 0 && !math.IsNaN(r) {
			c.weights[f] = r
		}
	}
	if total := floats.Sum(c.weights); total > 0 {
		floats.Scale(1/total, c.weights)
	}
	return nil
}

// Predict scores rows with the fitted weights.
func (c *CorrelationClassifier) Predict(rows [][]float64) ([]float64, error) {
	if c.weights == nil {
		return nil, fmt.Errorf("classifier predict: not fitted")
	}
	out := make([]float64, len(rows))
	for k, row := range rows {
		if len(row) != len(c.weights) {
			return nil, fmt.Errorf("classifier predict: row %d has %d features, want %d", k, len(row), len(c.weights))
		}
		z := 0.0
		for f, v := range row {
			if c.weights[f] == 0 {
				continue
			}
			z += c.weights[f] * (v - c.mean[f]) / c.std[f]
		}
		out[k] = 1 / (1 + math.Exp(-z))
	}
	return out, nil
}

// FeatureImportances returns the normalised weights.
func (c *CorrelationClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), c.weights...)
}

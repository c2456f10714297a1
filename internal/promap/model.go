package promap

import (
	"context"

	"github.com/banshee-data/hotspot.report/internal/risk"
)

// Model refits a ProMap surface for every training set it is given. It
// satisfies the backtest's model contract.
type Model struct {
	Estimator *Estimator
}

// Name identifies the model in reports.
func (Model) Name() string { return "ProMap" }

// Fit returns the fitted surface as a Density.
func (m Model) Fit(ctx context.Context, train []risk.Point) (risk.Density, error) {
	s, err := m.Estimator.Fit(ctx, train)
	if err != nil {
		return nil, err
	}
	return s, nil
}

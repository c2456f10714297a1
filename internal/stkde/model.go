package stkde

import (
	"context"
	"fmt"

	"github.com/banshee-data/hotspot.report/internal/risk"
)

// Model refits a KDE for every training set it is given. When Resample is
// positive the training set is first replaced by that many draws from a
// preliminary fit, which pulls mass away from outside the study region.
type Model struct {
	Bandwidth *Bandwidth
	Resample  int
	Options   []Option
}

// Name identifies the model in reports.
func (Model) Name() string { return "STKDE" }

// Fit returns the fitted KDE as a Density.
func (m Model) Fit(ctx context.Context, train []risk.Point) (risk.Density, error) {
	kde, err := Fit(ctx, train, m.Bandwidth, m.Options...)
	if err != nil {
		return nil, err
	}
	if m.Resample <= 0 {
		return kde, nil
	}
	synthetic, err := kde.Resample(ctx, m.Resample)
	if err != nil {
		return nil, fmt.Errorf("stkde model: %w", err)
	}
	bw := kde.Bandwidth()
	return Fit(ctx, synthetic, &bw, m.Options...)
}

package stkde

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/hotspot.report/internal/monitoring"
	"github.com/banshee-data/hotspot.report/internal/region"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

// DefaultMaxRounds bounds the rejection sampler.
const DefaultMaxRounds = 64

// DefaultCVSampleSize caps the number of points used by cross validation.
const DefaultCVSampleSize = 1500

// queryChunk is the number of query points evaluated per goroutine.
const queryChunk = 512

// Option configures Fit.
type Option func(*KDE)

// WithRegion restricts resampled points to r.
func WithRegion(r region.Region) Option { return func(k *KDE) { k.region = r } }

// WithSeed fixes the random streams used by cross validation and resampling.
func WithSeed(seed uint64) Option { return func(k *KDE) { k.seed = seed } }

// WithWorkers bounds parallel density evaluation and candidate generation.
func WithWorkers(n int) Option { return func(k *KDE) { k.workers = n } }

// WithMaxRounds sets the rejection round budget for Resample.
func WithMaxRounds(n int) Option { return func(k *KDE) { k.maxRounds = n } }

// WithCVSampleSize sets how many points cross validation may use. Zero or
// a negative value uses every training point.
func WithCVSampleSize(n int) Option { return func(k *KDE) { k.cvSample = n } }

// KDE is a fitted estimator. It is immutable and safe for concurrent use.
type KDE struct {
	data      []risk.Point
	bw        Bandwidth
	region    region.Region
	seed      uint64
	workers   int
	maxRounds int
	cvSample  int
}

// Fit builds a KDE over pts. With bw == nil the bandwidths are chosen by
// SelectBandwidth; otherwise bw is validated and used as given. Points
// with a NaN or infinite coordinate are rejected with risk.ErrNonFinite.
func Fit(ctx context.Context, pts []risk.Point, bw *Bandwidth, opts ...Option) (*KDE, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("stkde fit: %w", risk.ErrEmptyInput)
	}
	if err := risk.CheckFinite(pts); err != nil {
		return nil, fmt.Errorf("stkde fit: %w", err)
	}
	k := &KDE{
		data:      append([]risk.Point(nil), pts...),
		region:    region.All,
		seed:      1,
		maxRounds: DefaultMaxRounds,
		cvSample:  DefaultCVSampleSize,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.workers < 1 {
		k.workers = runtime.GOMAXPROCS(0)
	}
	if k.maxRounds < 1 {
		k.maxRounds = DefaultMaxRounds
	}

	if bw != nil {
		if err := bw.Validate(); err != nil {
			return nil, err
		}
		k.bw = *bw
		return k, nil
	}

	defer monitoring.Timed("STKDE", "bandwidth selection")()
	selected, err := SelectBandwidth(ctx, k.data, k.cvSample, k.seed)
	if err != nil {
		return nil, fmt.Errorf("stkde fit: %w", err)
	}
	k.bw = selected
	return k, nil
}

// Bandwidth returns the fitted bandwidths.
func (k *KDE) Bandwidth() Bandwidth { return k.bw }

// N returns the number of training points.
func (k *KDE) N() int { return len(k.data) }

// PDF evaluates the density at every point. Evaluation is split into
// fixed-size chunks of the query slice; each result slot is written by
// exactly one goroutine.
func (k *KDE) PDF(ctx context.Context, pts []risk.Point) ([]float64, error) {
	out := make([]float64, len(pts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(k.workers)
	for lo := 0; lo < len(pts); lo += queryChunk {
		hi := min(lo+queryChunk, len(pts))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for q := lo; q < hi; q++ {
				out[q] = k.density(pts[q])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DensityAt implements risk.Density.
func (k *KDE) DensityAt(ctx context.Context, pts []risk.Point) ([]float64, error) {
	return k.PDF(ctx, pts)
}

func (k *KDE) density(p risk.Point) float64 {
	h := k.bw
	sum := 0.0
	for _, q := range k.data {
		sum += distuv.UnitNormal.Prob((p.X-q.X)/h.X) *
			distuv.UnitNormal.Prob((p.Y-q.Y)/h.Y) *
			distuv.UnitNormal.Prob((p.T-q.T)/h.T)
	}
	return sum / (float64(len(k.data)) * h.X * h.Y * h.T)
}

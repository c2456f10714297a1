package stkde

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/hotspot.report/internal/monitoring"
	"github.com/banshee-data/hotspot.report/internal/risk"
)

// candidateChunk is the number of candidates one goroutine draws per round.
const candidateChunk = 4096

// maxOversample caps how many candidates a round draws per missing point.
const maxOversample = 64

// Resample draws size synthetic points from the fitted density: a training
// point chosen uniformly with replacement, plus independent Gaussian noise
// with the fitted bandwidth in each dimension. Candidates outside the
// region are rejected and the shortfall is redrawn in the next round.
//
// Each round draws enough candidates to cover the shortfall at the
// acceptance rate seen so far. Candidates are generated in chunks, each
// chunk with its own PCG stream derived from (seed, round, chunk), and
// accepted points are appended in chunk order, so the output depends only
// on the seed and not on scheduling. When the round budget runs out a
// *risk.ResampleExhaustedError is returned.
func (k *KDE) Resample(ctx context.Context, size int) ([]risk.Point, error) {
	if size <= 0 {
		return nil, nil
	}
	logf := monitoring.Prefixed("STKDE")
	out := make([]risk.Point, 0, size)
	drawn, accepted := 0, 0

	for round := 0; round < k.maxRounds; round++ {
		need := size - len(out)
		batch := need
		if accepted > 0 {
			rate := float64(accepted) / float64(drawn)
			batch = int(math.Ceil(float64(need) / rate * 1.1))
		} else if drawn > 0 {
			batch = need * maxOversample
		}
		batch = min(batch, need*maxOversample)

		got, err := k.round(ctx, round, batch)
		if err != nil {
			return nil, err
		}
		drawn += batch
		accepted += len(got)
		out = append(out, got[:min(len(got), need)]...)
		if len(out) == size {
			logf("resampled %d points in %d rounds (acceptance %.3f)", size, round+1, float64(accepted)/float64(drawn))
			return out, nil
		}
	}
	return nil, &risk.ResampleExhaustedError{Requested: size, Produced: len(out), Rounds: k.maxRounds}
}

// round draws batch candidates and returns the accepted ones in chunk order.
func (k *KDE) round(ctx context.Context, round, batch int) ([]risk.Point, error) {
	chunks := (batch + candidateChunk - 1) / candidateChunk
	results := make([][]risk.Point, chunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(k.workers)
	for c := 0; c < chunks; c++ {
		n := min(candidateChunk, batch-c*candidateChunk)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := rand.New(rand.NewPCG(k.seed, uint64(round)<<32|uint64(c)))
			results[c] = k.draw(r, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resample round %d: %w", round, err)
	}

	var out []risk.Point
	for _, res := range results {
		out = append(out, res...)
	}
	return out, nil
}

func (k *KDE) draw(r *rand.Rand, n int) []risk.Point {
	var out []risk.Point
	for range n {
		base := k.data[r.IntN(len(k.data))]
		p := risk.Point{
			X: base.X + r.NormFloat64()*k.bw.X,
			Y: base.Y + r.NormFloat64()*k.bw.Y,
			T: base.T + r.NormFloat64()*k.bw.T,
		}
		if k.region.Contains(p.X, p.Y) {
			out = append(out, p)
		}
	}
	return out
}

// Package evaluate scores a risk density against held-out incidents.
//
// For a ladder of thresholds spanning [0, max density over the reference
// points], the hit rate is the share of held-out incidents whose density is
// at least the threshold, and the area percentage is the share of reference
// points at or above it. The predictive accuracy index (PAI) is their
// ratio. Backtest repeats this over an ordered sequence of prediction
// groups with an expanding training set.
package evaluate

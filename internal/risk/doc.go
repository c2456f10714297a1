// Package risk holds the vocabulary shared by every estimator and by the
// evaluator: space-time query points, the Density capability and the
// error kinds callers can test for with errors.Is / errors.As.
package risk

// Package grid maps projected coordinates onto a regular rectangular grid
// and holds the flat per-cell arrays (CountMatrix, Surface) that the
// estimators produce and the evaluator consumes.
//
// Cells are addressed either by (i, j) or by the flat id i + j*NX, dense in
// [0, NX*NY). Both CountMatrix and Surface store one entry per flat id.
package grid

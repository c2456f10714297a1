// Package stkde implements a space-time kernel density estimator over
// (x, y, t) with a product Gaussian kernel.
//
// Bandwidths are either supplied or selected by maximum-likelihood
// leave-one-out cross validation. A fitted KDE can evaluate its density at
// arbitrary points and draw new synthetic incidents from itself, rejecting
// draws that fall outside the configured study region.
package stkde

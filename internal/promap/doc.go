// Package promap implements ProMap, a prospective hotspot estimator that
// spreads each training incident over the grid cells inside an
// axis-aligned bandwidth window. A cell's contribution is the product of a
// time-decay weight (older incidents count for less, in whole weeks) and
// the inverse distance from the cell center to the incident.
package promap

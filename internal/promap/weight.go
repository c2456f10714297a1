package promap

import "math"

// DaysPerWeek converts elapsed days into the week count used for decay.
const DaysPerWeek = 7

// WeekWeight returns the time-decay weight of an incident that happened on
// dayOffset when the training window ends on totalDays. The weight is one
// over the number of weeks elapsed, rounded up, with anything under a week
// (or in the future) counting as a single week.
func WeekWeight(totalDays, dayOffset float64) float64 {
	weeks := math.Ceil((totalDays - dayOffset) / DaysPerWeek)
	if weeks < 1 {
		weeks = 1
	}
	return 1 / weeks
}

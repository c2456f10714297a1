package incident

import (
	"fmt"
	"time"
)

// Defaults reproducing the published Dallas schedule: a one-month model
// window followed by a one-week prediction window, stepped weekly from
// 1 October 2017.
const (
	DefaultTrainDays = 31
	DefaultTestDays  = 7
	DefaultStepDays  = 7
	DefaultGroups    = 8
)

// DefaultScheduleStart is the first day of the first training window.
var DefaultScheduleStart = time.Date(2017, time.October, 1, 0, 0, 0, 0, time.UTC)

// PredictGroup is one step of the rolling evaluation: Train is the window
// whose incidents the group adds to the model, Test the window it is
// scored on. Index is 1-based.
type PredictGroup struct {
	Index int    `json:"index"`
	Train Window `json:"train"`
	Test  Window `json:"test"`
}

func (g PredictGroup) String() string {
	return fmt.Sprintf("group_%d train=%s test=%s", g.Index, g.Train, g.Test)
}

// Schedule describes how PredictGroups are laid out.
type Schedule struct {
	Start     time.Time
	TrainDays int
	TestDays  int
	StepDays  int
	Count     int
}

// DefaultSchedule returns the published schedule.
func DefaultSchedule() Schedule {
	return Schedule{
		Start:     DefaultScheduleStart,
		TrainDays: DefaultTrainDays,
		TestDays:  DefaultTestDays,
		StepDays:  DefaultStepDays,
		Count:     DefaultGroups,
	}
}

// Groups lays out the schedule. Group k (0-based) trains on
// [Start+k*Step, +TrainDays) and tests on the TestDays that follow.
func (s Schedule) Groups() ([]PredictGroup, error) {
	if s.TrainDays < 1 || s.TestDays < 1 || s.StepDays < 1 || s.Count < 1 {
		return nil, fmt.Errorf("invalid schedule: train=%d test=%d step=%d count=%d",
			s.TrainDays, s.TestDays, s.StepDays, s.Count)
	}
	groups := make([]PredictGroup, s.Count)
	for k := range groups {
		trainStart := s.Start.AddDate(0, 0, k*s.StepDays)
		testStart := trainStart.AddDate(0, 0, s.TrainDays)
		groups[k] = PredictGroup{
			Index: k + 1,
			Train: Window{Start: trainStart, End: testStart},
			Test:  Window{Start: testStart, End: testStart.AddDate(0, 0, s.TestDays)},
		}
	}
	return groups, nil
}

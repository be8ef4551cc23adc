package grid_test

import (
	"testing"

	"glowgrid/internal/grid"
)

// TestSchedulerRunsDueInOrder verifies due events fire in insertion order
// and future events stay queued
func TestSchedulerRunsDueInOrder(t *testing.T) {
	s := grid.NewScheduler()

	var order []int
	s.Schedule(5, func() { order = append(order, 1) })
	s.Schedule(3, func() { order = append(order, 2) })
	s.Schedule(20, func() { order = append(order, 3) })

	s.RunDue(10)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("run order: got %v, want [1 2]", order)
	}
	if s.Pending() != 1 {
		t.Errorf("pending after run: got %d, want 1", s.Pending())
	}

	s.RunDue(20)
	if len(order) != 3 || order[2] != 3 {
		t.Errorf("future event did not fire at its tick: %v", order)
	}
}

// TestSchedulerCancelAll verifies cancellation invalidates pending events
// while later schedules land in the new epoch
func TestSchedulerCancelAll(t *testing.T) {
	s := grid.NewScheduler()

	fired := false
	s.Schedule(5, func() { fired = true })
	s.CancelAll()
	s.RunDue(10)

	if fired {
		t.Error("cancelled event should not fire")
	}

	refired := false
	s.Schedule(15, func() { refired = true })
	s.RunDue(20)

	if !refired {
		t.Error("event scheduled after CancelAll should fire")
	}
}

// TestSchedulerCallbackSchedules verifies a callback can queue a same-tick
// followup and have it run in the same pass
func TestSchedulerCallbackSchedules(t *testing.T) {
	s := grid.NewScheduler()

	var order []string
	s.Schedule(1, func() {
		order = append(order, "first")
		s.Schedule(1, func() { order = append(order, "chained") })
	})

	s.RunDue(1)

	if len(order) != 2 || order[1] != "chained" {
		t.Errorf("chained event: got %v, want [first chained]", order)
	}
}

// TestSchedulerCancelDuringRun verifies a callback calling CancelAll stops
// the remaining due events
func TestSchedulerCancelDuringRun(t *testing.T) {
	s := grid.NewScheduler()

	var ran []int
	s.Schedule(1, func() {
		ran = append(ran, 1)
		s.CancelAll()
	})
	s.Schedule(1, func() { ran = append(ran, 2) })

	s.RunDue(1)

	if len(ran) != 1 {
		t.Errorf("events after mid-pass cancel: got %v, want [1]", ran)
	}
	if s.Pending() != 0 {
		t.Errorf("pending after mid-pass cancel: got %d, want 0", s.Pending())
	}
}

// TestSchedulerRecoversPanic verifies one panicking callback does not take
// the others down
func TestSchedulerRecoversPanic(t *testing.T) {
	s := grid.NewScheduler()

	survived := false
	s.Schedule(1, func() { panic("boom") })
	s.Schedule(1, func() { survived = true })

	s.RunDue(1)

	if !survived {
		t.Error("event after a panicking callback should still run")
	}
}

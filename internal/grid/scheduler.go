package grid

import "log"

// scheduledEvent is one pending callback in the tick-indexed event queue.
// The epoch is captured at schedule time and checked before the callback
// runs, so Reset can invalidate every pending event cheaply.
type scheduledEvent struct {
	due   int64
	epoch uint64
	fn    func()
}

// Scheduler models timer-driven phase transitions as explicit scheduled
// events in a single-threaded event queue with cancellation tokens.
// All methods must be called with the engine lock held.
type Scheduler struct {
	events []scheduledEvent
	epoch  uint64
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{events: make([]scheduledEvent, 0, 64)}
}

// Schedule queues fn to run at the given tick under the current epoch.
func (s *Scheduler) Schedule(due int64, fn func()) {
	s.events = append(s.events, scheduledEvent{due: due, epoch: s.epoch, fn: fn})
}

// CancelAll invalidates every pending event by advancing the epoch.
// Events already queued are dropped; callbacks captured elsewhere that
// re-enter the scheduler land in the new epoch.
func (s *Scheduler) CancelAll() {
	s.epoch++
	s.events = s.events[:0]
}

// RunDue executes all events due at or before now, in insertion order,
// with zero-allocation in-place filtering of the queue. Callbacks may
// schedule new events; the index loop picks them up in the same pass.
// A panicking callback is recovered and logged; it must not take down the
// tick loop or leave later events unprocessed.
func (s *Scheduler) RunDue(now int64) {
	startEpoch := s.epoch
	n := 0
	for i := 0; i < len(s.events); i++ {
		ev := s.events[i]
		if ev.epoch != s.epoch {
			continue // cancelled
		}
		if ev.due > now {
			s.events[n] = ev
			n++
			continue
		}
		runScheduled(ev.fn)
	}
	if s.epoch != startEpoch {
		// A callback cancelled everything mid-pass; the queue is already
		// truncated and the compacted prefix is stale.
		return
	}
	s.events = s.events[:n]
}

// Pending returns the number of queued events (including cancelled ones
// not yet compacted).
func (s *Scheduler) Pending() int {
	return len(s.events)
}

func runScheduled(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduled event panicked: %v", r)
		}
	}()
	fn()
}

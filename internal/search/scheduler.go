package search

import "time"

// Scheduler runs a function after a delay. It is the coordinator's only source of time,
// so tests can substitute a simulated clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call if it has not started. It reports whether it did.
	Stop() bool
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler schedules on the runtime's timers.
func SystemScheduler() Scheduler { return systemScheduler{} }

// debouncer holds the settled value of an input and a timer for the pending one.
// It is not safe for concurrent use; the coordinator's mutex guards it.
type debouncer[T any] struct {
	sched   Scheduler
	delay   time.Duration
	equal   func(a, b T) bool
	settled T
	pending T
	timer   Timer
	seq     uint64
}

func newDebouncer[T any](sched Scheduler, delay time.Duration, equal func(a, b T) bool) *debouncer[T] {
	return &debouncer[T]{sched: sched, delay: delay, equal: equal}
}

// set schedules v to settle after the delay, superseding any pending value.
// fire runs on the scheduler with the sequence number it must present to settle.
func (d *debouncer[T]) set(v T, fire func(seq uint64, v T)) {
	if d.timer != nil && d.equal(d.pending, v) {
		return
	}
	if d.timer == nil && d.equal(d.settled, v) {
		return
	}
	d.stop()
	d.seq++
	d.pending = v
	seq := d.seq
	d.timer = d.sched.AfterFunc(d.delay, func() { fire(seq, v) })
}

// settle applies a fired value. It reports whether the settled value changed;
// stale sequence numbers and unchanged values report false.
func (d *debouncer[T]) settle(seq uint64, v T) bool {
	if seq != d.seq {
		return false
	}
	d.timer = nil
	if d.equal(d.settled, v) {
		return false
	}
	d.settled = v
	return true
}

func (d *debouncer[T]) stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// revert drops the pending value so the settled one stands. A fire already
// waiting on the caller's lock sees a stale sequence number.
func (d *debouncer[T]) revert() {
	d.stop()
	d.seq++
	d.pending = d.settled
}

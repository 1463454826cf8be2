package search

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler schedules on the runtime timer.
var RealScheduler Scheduler = realScheduler{}

// Debouncer delivers the last value passed to Trigger once no further Trigger call has
// happened for the delay.
type Debouncer[T any] struct {
	delay time.Duration
	sched Scheduler
	fn    func(T)

	mu      sync.Mutex
	pending Timer
	seq     uint64
}

func NewDebouncer[T any](delay time.Duration, sched Scheduler, fn func(T)) *Debouncer[T] {
	if sched == nil {
		sched = RealScheduler
	}
	return &Debouncer[T]{delay: delay, sched: sched, fn: fn}
}

// Trigger cancels the pending delivery, if any, and schedules v.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	seq := d.seq
	d.pending = d.sched.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()
		d.fn(v)
	})
}

// Stop cancels the pending delivery.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Pending reports whether a delivery is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// cancelLocked also invalidates a callback that already fired but has not yet taken
// the lock.
func (d *Debouncer[T]) cancelLocked() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.seq++
}

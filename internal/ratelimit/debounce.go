package ratelimit

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of calls into one call of fn carrying the last
// argument, fired once no further call arrives for delay.
type Debouncer[T any] struct {
	mu      sync.Mutex
	clock   Clock
	delay   time.Duration
	fn      func(T)
	timer   Timer
	gen     uint64
	pending bool
	arg     T
	stopped bool
}

// NewDebouncer creates a debouncer for fn.
func NewDebouncer[T any](delay time.Duration, fn func(T), opts ...Option) *Debouncer[T] {
	o := buildOptions(opts)
	return &Debouncer[T]{clock: o.clock, delay: delay, fn: fn}
}

// Call schedules fn(arg), superseding any pending call.
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.arg = arg
	d.pending = true
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	arg := d.arg
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn(arg)
}

// Flush runs a pending call immediately. Returns false if nothing was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	arg := d.arg
	d.pending = false
	d.mu.Unlock()

	d.fn(arg)
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any pending call. Later calls are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

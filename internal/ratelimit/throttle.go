package ratelimit

import (
	"sync"
	"time"
)

// Throttle calls fn immediately on the first call of a burst, then at most
// once per interval. Calls suppressed inside the interval collapse into one
// trailing call with the most recent argument.
type Throttle[T any] struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	fn       func(T)

	fired    bool
	lastFire time.Time
	timer    Timer
	gen      uint64
	pending  bool
	arg      T
	stopped  bool
}

// NewThrottle creates a throttle for fn.
func NewThrottle[T any](interval time.Duration, fn func(T), opts ...Option) *Throttle[T] {
	o := buildOptions(opts)
	return &Throttle[T]{clock: o.clock, interval: interval, fn: fn}
}

// Call invokes or schedules fn(arg).
func (t *Throttle[T]) Call(arg T) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	now := t.clock.Now()
	elapsed := now.Sub(t.lastFire)
	if !t.fired || elapsed >= t.interval {
		t.fired = true
		t.lastFire = now
		t.pending = false
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
			t.gen++
		}
		t.mu.Unlock()
		t.fn(arg)
		return
	}

	t.arg = arg
	t.pending = true
	if t.timer == nil {
		gen := t.gen
		t.timer = t.clock.AfterFunc(t.interval-elapsed, func() { t.trailing(gen) })
	}
	t.mu.Unlock()
}

func (t *Throttle[T]) trailing(gen uint64) {
	t.mu.Lock()
	if t.stopped || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	if !t.pending {
		t.mu.Unlock()
		return
	}
	arg := t.arg
	t.pending = false
	t.lastFire = t.clock.Now()
	t.mu.Unlock()

	t.fn(arg)
}

// Flush runs a pending trailing call immediately. The interval restarts from
// now. Returns false if nothing was pending.
func (t *Throttle[T]) Flush() bool {
	t.mu.Lock()
	if t.stopped || !t.pending {
		t.mu.Unlock()
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	arg := t.arg
	t.pending = false
	t.lastFire = t.clock.Now()
	t.mu.Unlock()

	t.fn(arg)
	return true
}

// Pending returns the argument of the pending trailing call, if any.
func (t *Throttle[T]) Pending() (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pending {
		var zero T
		return zero, false
	}
	return t.arg, true
}

// idle reports whether a fresh throttle would behave the same from now on.
func (t *Throttle[T]) idle(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.pending && t.timer == nil && (!t.fired || now.Sub(t.lastFire) >= t.interval)
}

// Stop cancels a pending trailing call. Later calls are ignored.
func (t *Throttle[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.pending = false
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

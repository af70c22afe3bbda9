package ratelimit

import (
	"sync"
	"time"
)

// ThrottleGroup keeps one Throttle per key, so that bursts on one key never
// suppress calls on another. Throttles idle for a full interval are dropped.
type ThrottleGroup[T any] struct {
	mu        sync.Mutex
	clock     Clock
	interval  time.Duration
	fn        func(key string, arg T)
	opts      []Option
	throttles map[string]*Throttle[T]
	lastSweep time.Time
	stopped   bool
}

// NewThrottleGroup creates a keyed throttle.
func NewThrottleGroup[T any](interval time.Duration, fn func(key string, arg T), opts ...Option) *ThrottleGroup[T] {
	return &ThrottleGroup[T]{
		clock:     buildOptions(opts).clock,
		interval:  interval,
		fn:        fn,
		opts:      opts,
		throttles: make(map[string]*Throttle[T]),
	}
}

// Call routes arg to the throttle for key.
func (g *ThrottleGroup[T]) Call(key string, arg T) {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.sweepLocked()
	th, ok := g.throttles[key]
	if !ok {
		th = NewThrottle(g.interval, func(a T) { g.fn(key, a) }, g.opts...)
		g.throttles[key] = th
	}
	g.mu.Unlock()

	th.Call(arg)
}

// Flush runs the pending trailing call for key immediately.
func (g *ThrottleGroup[T]) Flush(key string) bool {
	if th := g.get(key); th != nil {
		return th.Flush()
	}
	return false
}

// Pending returns the argument of the pending trailing call for key.
func (g *ThrottleGroup[T]) Pending(key string) (T, bool) {
	if th := g.get(key); th != nil {
		return th.Pending()
	}
	var zero T
	return zero, false
}

// Len returns the number of keys currently tracked.
func (g *ThrottleGroup[T]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.throttles)
}

func (g *ThrottleGroup[T]) get(key string) *Throttle[T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.throttles[key]
}

// sweepLocked drops idle throttles, at most once per interval.
func (g *ThrottleGroup[T]) sweepLocked() {
	now := g.clock.Now()
	if now.Sub(g.lastSweep) < g.interval {
		return
	}
	g.lastSweep = now
	for key, th := range g.throttles {
		if th.idle(now) {
			delete(g.throttles, key)
		}
	}
}

// Stop stops every throttle in the group.
func (g *ThrottleGroup[T]) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopped = true
	for _, th := range g.throttles {
		th.Stop()
	}
}

// DebounceGroup keeps one Debouncer per key.
type DebounceGroup[T any] struct {
	mu         sync.Mutex
	delay      time.Duration
	fn         func(key string, arg T)
	opts       []Option
	debouncers map[string]*Debouncer[T]
	stopped    bool
}

// NewDebounceGroup creates a keyed debouncer.
func NewDebounceGroup[T any](delay time.Duration, fn func(key string, arg T), opts ...Option) *DebounceGroup[T] {
	return &DebounceGroup[T]{
		delay:      delay,
		fn:         fn,
		opts:       opts,
		debouncers: make(map[string]*Debouncer[T]),
	}
}

// Call routes arg to the debouncer for key.
func (g *DebounceGroup[T]) Call(key string, arg T) {
	g.debouncer(key).Call(arg)
}

// Flush runs the pending call for key immediately.
func (g *DebounceGroup[T]) Flush(key string) bool {
	g.mu.Lock()
	d, ok := g.debouncers[key]
	g.mu.Unlock()
	if !ok {
		return false
	}
	return d.Flush()
}

// Cancel drops the pending call for key without running it.
func (g *DebounceGroup[T]) Cancel(key string) {
	g.mu.Lock()
	d, ok := g.debouncers[key]
	delete(g.debouncers, key)
	g.mu.Unlock()
	if ok {
		d.Stop()
	}
}

// Stop stops every debouncer in the group.
func (g *DebounceGroup[T]) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopped = true
	for _, d := range g.debouncers {
		d.Stop()
	}
}

func (g *DebounceGroup[T]) debouncer(key string) *Debouncer[T] {
	g.mu.Lock()
	defer g.mu.Unlock()

	d, ok := g.debouncers[key]
	if !ok {
		d = NewDebouncer(g.delay, func(a T) { g.fn(key, a) }, g.opts...)
		if g.stopped {
			d.Stop()
		}
		g.debouncers[key] = d
	}
	return d
}

// Package ratelimit provides debounce and throttle primitives over an
// injectable clock. Both cancel pending callbacks when superseded and when
// stopped, so no callback runs after Stop returns.
package ratelimit

import "time"

// Clock schedules callbacks. RealClock uses the time package.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. Returns false if it already ran
	// or was already stopped.
	Stop() bool
}

// RealClock is the wall clock.
var RealClock Clock = realClock{}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type options struct {
	clock Clock
}

// Option configures a Debouncer or Throttle.
type Option func(*options)

// WithClock replaces the wall clock, typically with a manual clock in tests.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func buildOptions(opts []Option) options {
	o := options{clock: RealClock}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

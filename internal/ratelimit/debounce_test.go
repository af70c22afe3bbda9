package ratelimit_test

import (
	"testing"
	"time"

	"github.com/dyluth/kanban/internal/ratelimit"
	"github.com/dyluth/kanban/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDebounceCoalescesToLastCall(t *testing.T) {
	clock := testutil.NewManualClock()
	var got []string
	d := ratelimit.NewDebouncer(300*time.Millisecond, func(s string) { got = append(got, s) }, ratelimit.WithClock(clock))

	d.Call("a")
	clock.Advance(100 * time.Millisecond)
	d.Call("b")
	clock.Advance(100 * time.Millisecond)
	d.Call("c")

	clock.Advance(299 * time.Millisecond)
	assert.Empty(t, got, "still inside the quiet window")

	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"c"}, got)

	clock.Advance(time.Second)
	assert.Equal(t, []string{"c"}, got, "fires exactly once")
}

func TestDebounceSeparateBursts(t *testing.T) {
	clock := testutil.NewManualClock()
	var got []int
	d := ratelimit.NewDebouncer(50*time.Millisecond, func(n int) { got = append(got, n) }, ratelimit.WithClock(clock))

	d.Call(1)
	clock.Advance(60 * time.Millisecond)
	d.Call(2)
	clock.Advance(60 * time.Millisecond)

	assert.Equal(t, []int{1, 2}, got)
}

func TestDebounceStopCancelsPending(t *testing.T) {
	clock := testutil.NewManualClock()
	calls := 0
	d := ratelimit.NewDebouncer(50*time.Millisecond, func(struct{}) { calls++ }, ratelimit.WithClock(clock))

	d.Call(struct{}{})
	assert.True(t, d.Pending())
	d.Stop()
	assert.False(t, d.Pending())
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Second)
	d.Call(struct{}{})
	clock.Advance(time.Second)
	assert.Equal(t, 0, calls)
}

func TestDebounceFlush(t *testing.T) {
	clock := testutil.NewManualClock()
	var got []string
	d := ratelimit.NewDebouncer(time.Second, func(s string) { got = append(got, s) }, ratelimit.WithClock(clock))

	assert.False(t, d.Flush())
	d.Call("x")
	assert.True(t, d.Flush())
	assert.Equal(t, []string{"x"}, got)

	clock.Advance(2 * time.Second)
	assert.Equal(t, []string{"x"}, got, "flushed call is not repeated")
}

func TestDebounceRealClock(t *testing.T) {
	done := make(chan string, 1)
	d := ratelimit.NewDebouncer(10*time.Millisecond, func(s string) { done <- s })
	d.Call("first")
	d.Call("last")

	select {
	case got := <-done:
		assert.Equal(t, "last", got)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never fired")
	}
}

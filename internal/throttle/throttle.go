// Package throttle provides a trailing-edge rate limiter for callbacks.
package throttle

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Throttle runs fn at most once per wait interval. A call that arrives
// inside the interval is held until the interval ends; if several arrive,
// only the latest value is delivered.
type Throttle[T any] struct {
	clock clockwork.Clock
	wait  time.Duration
	fn    func(T)

	mu         sync.Mutex
	last       time.Time
	fired      bool
	pending    T
	hasPending bool
	timer      clockwork.Timer
	gen        uint64
	stopped    bool
}

// New creates a throttle around fn. A nil clock uses the real clock.
func New[T any](clock clockwork.Clock, wait time.Duration, fn func(T)) *Throttle[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Throttle[T]{clock: clock, wait: wait, fn: fn}
}

// Call delivers v now if the interval since the last delivery has elapsed,
// otherwise schedules it for the end of the interval. It reports whether fn
// ran synchronously. Calls after Stop are dropped.
func (t *Throttle[T]) Call(v T) bool {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return false
	}

	now := t.clock.Now()
	remain := t.wait - now.Sub(t.last)
	if !t.fired || remain <= 0 {
		t.cancelLocked()
		t.last = now
		t.fired = true
		t.mu.Unlock()
		t.fn(v)
		return true
	}

	t.pending = v
	t.hasPending = true
	if t.timer == nil {
		gen := t.gen
		t.timer = t.clock.AfterFunc(remain, func() { t.flush(gen) })
	}
	t.mu.Unlock()
	return false
}

// Pending reports whether a deferred value is waiting for the interval to end.
func (t *Throttle[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasPending
}

// Stop drops any pending value and disables the throttle. It is safe to
// call more than once.
func (t *Throttle[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.cancelLocked()
}

func (t *Throttle[T]) flush(gen uint64) {
	t.mu.Lock()
	if t.stopped || gen != t.gen || !t.hasPending {
		t.mu.Unlock()
		return
	}
	v := t.pending
	t.clearLocked()
	t.timer = nil
	t.gen++
	t.last = t.clock.Now()
	t.mu.Unlock()
	t.fn(v)
}

// cancelLocked stops the timer and bumps the generation so a callback that
// already left the timer becomes a no-op.
func (t *Throttle[T]) cancelLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.clearLocked()
}

func (t *Throttle[T]) clearLocked() {
	var zero T
	t.pending = zero
	t.hasPending = false
}

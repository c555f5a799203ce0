package domain

import "github.com/jonboulle/clockwork"

// clock stamps published plume generations. Tests pin it with SetClock so
// published_at is reproducible.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used by NewPlumeGeneration. Pass nil to
// restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

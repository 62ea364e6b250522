// Package clock abstracts time so that timer-driven state machines can be
// driven deterministically in tests.
package clock

import "time"

// Clock provides the current time and cancelable one-shot timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable handle for a scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer, false if the timer already fired or was stopped.
	Stop() bool
}

// Real is the Clock backed by package time.
var Real Clock = realClock{}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Stop stops t if it is non-nil. It is a convenience for the common
// "cancel whatever is pending" reset path.
func Stop(t Timer) {
	if t != nil {
		t.Stop()
	}
}

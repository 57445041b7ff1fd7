package client

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop prevents the callback from running. It reports false if it already ran.
	Stop() bool
}

// Clock provides time so timers can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock implements Clock using the time package.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time { return time.Now() }

// AfterFunc runs f in its own goroutine after d.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Package clock abstracts wall time and tickers so the session loops can be
// driven deterministically in tests.
//
// Production code uses [Real]. Tests use [Fake], whose tickers fire only when
// [FakeClock.Advance] moves time forward.
package clock

import "time"

// Clock is the subset of the time package the session engine depends on.
type Clock interface {
	Now() time.Time

	// NewTicker returns a ticker delivering on C every d. d must be > 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker mirrors time.Ticker but is backed by either the real runtime or
// a FakeClock.
type Ticker struct {
	C <-chan time.Time

	stopFunc  func()
	resetFunc func(time.Duration)
}

// Stop turns the ticker off. Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Reset changes the ticker period and restarts it.
func (t *Ticker) Reset(d time.Duration) { t.resetFunc(d) }

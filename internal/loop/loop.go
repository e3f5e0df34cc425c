// Package loop runs a function periodically on a clock.Ticker with
// idempotent Start/Stop pairs.
package loop

import (
	"sync"
	"time"

	"github.com/MrEthical07/goSession/internal/clock"
)

// Loop invokes fn once per interval while running. fn runs on the loop's own
// goroutine; ticks that arrive while fn is still running are dropped.
type Loop struct {
	clock    clock.Clock
	interval time.Duration
	fn       func(now time.Time)

	mu     sync.Mutex
	ticker *clock.Ticker
	stop   chan struct{}
	starts uint64
}

// New creates a stopped Loop.
func New(clk clock.Clock, interval time.Duration, fn func(now time.Time)) *Loop {
	if clk == nil {
		clk = clock.Real()
	}
	return &Loop{
		clock:    clk,
		interval: interval,
		fn:       fn,
	}
}

// Start stops any previous run and starts a new one. The ticker is created
// before Start returns.
func (l *Loop) Start() {
	if l == nil || l.interval <= 0 || l.fn == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopLocked()
	ticker := l.clock.NewTicker(l.interval)
	stop := make(chan struct{})
	l.ticker = ticker
	l.stop = stop
	l.starts++

	go l.run(ticker, stop)
}

// Stop halts the loop. It is safe to call repeatedly and from within fn; it
// never waits for fn to return.
func (l *Loop) Stop() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

// Running reports whether the loop is started.
func (l *Loop) Running() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticker != nil
}

// Starts reports how many times Start created a ticker.
func (l *Loop) Starts() uint64 {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.starts
}

func (l *Loop) stopLocked() {
	if l.ticker == nil {
		return
	}
	l.ticker.Stop()
	close(l.stop)
	l.ticker = nil
	l.stop = nil
}

func (l *Loop) run(ticker *clock.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			l.fn(now)
		}
	}
}

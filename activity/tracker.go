package activity

import (
	"sync"
	"time"

	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/internal/loop"
)

const (
	// DefaultTimeout is how long a session may go without a signal.
	DefaultTimeout = 30 * time.Minute
	// DefaultCheckInterval is how often the idle check runs.
	DefaultCheckInterval = time.Minute
)

// TrackerConfig configures a Tracker. Zero fields take defaults.
type TrackerConfig struct {
	Timeout       time.Duration
	CheckInterval time.Duration
}

// Tracker watches a Source and reports idleness.
type Tracker struct {
	source  Source
	clock   clock.Clock
	timeout time.Duration
	onIdle  func(idleFor time.Duration)
	check   *loop.Loop

	mu          sync.Mutex
	unsubscribe func()
	last        time.Time
}

// NewTracker creates a stopped Tracker. onIdle runs on the check goroutine,
// at most once per Start.
func NewTracker(source Source, clk clock.Clock, cfg TrackerConfig, onIdle func(idleFor time.Duration)) *Tracker {
	if clk == nil {
		clk = clock.Real()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	t := &Tracker{
		source:  source,
		clock:   clk,
		timeout: cfg.Timeout,
		onIdle:  onIdle,
	}
	t.check = loop.New(clk, cfg.CheckInterval, t.tick)
	return t
}

// Start resets the activity timestamp, subscribes to the source and starts
// the idle check. A running Tracker is fully stopped first.
func (t *Tracker) Start() {
	if t == nil {
		return
	}
	t.Stop()

	t.mu.Lock()
	t.last = t.clock.Now()
	if t.source != nil {
		t.unsubscribe = t.source.Subscribe(func(Signal) { t.Touch() })
	}
	t.mu.Unlock()

	t.check.Start()
}

// Stop unsubscribes and halts the idle check. It is idempotent and safe to
// call from onIdle.
func (t *Tracker) Stop() {
	if t == nil {
		return
	}
	t.check.Stop()

	t.mu.Lock()
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Touch records activity now.
func (t *Tracker) Touch() {
	if t == nil {
		return
	}
	now := t.clock.Now()
	t.mu.Lock()
	if now.After(t.last) {
		t.last = now
	}
	t.mu.Unlock()
}

// LastActivity returns the time of the last recorded signal, or the zero time
// before the first Start.
func (t *Tracker) LastActivity() time.Time {
	if t == nil {
		return time.Time{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Running reports whether the idle check is active.
func (t *Tracker) Running() bool {
	return t != nil && t.check.Running()
}

func (t *Tracker) tick(now time.Time) {
	t.mu.Lock()
	idleFor := now.Sub(t.last)
	t.mu.Unlock()

	if idleFor <= t.timeout {
		return
	}
	t.Stop()
	if t.onIdle != nil {
		t.onIdle(idleFor)
	}
}

package activity

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/internal/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHubSubscribeEmitUnsubscribe(t *testing.T) {
	var hub Hub
	var got atomic.Int32
	unsubscribe := hub.Subscribe(func(s Signal) {
		if s == SignalKeyPress {
			got.Add(1)
		}
	})

	hub.Emit(SignalKeyPress)
	hub.Emit(Signal("resize"))
	if got.Load() != 1 {
		t.Fatalf("expected 1 delivery, got %d", got.Load())
	}

	unsubscribe()
	unsubscribe()
	hub.Emit(SignalKeyPress)
	if got.Load() != 1 {
		t.Fatal("unsubscribed handler still receives signals")
	}
	if hub.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.Subscribers())
	}
}

func TestTrackerIdleFiresOnce(t *testing.T) {
	clk := clock.Fake(epoch)
	hub := NewHub()
	var idle atomic.Int32
	tr := NewTracker(hub, clk, TrackerConfig{}, func(time.Duration) { idle.Add(1) })

	tr.Start()
	clk.Advance(31 * time.Minute)
	waitFor(t, func() bool { return idle.Load() == 1 })
	waitFor(t, func() bool { return !tr.Running() })

	if hub.Subscribers() != 0 {
		t.Fatal("idle tracker must release its subscription")
	}
	clk.Advance(time.Hour)
	time.Sleep(10 * time.Millisecond)
	if idle.Load() != 1 {
		t.Fatalf("idle callback ran %d times", idle.Load())
	}
}

func TestTrackerActivityPostponesIdle(t *testing.T) {
	clk := clock.Fake(epoch)
	hub := NewHub()
	var idle atomic.Int32
	tr := NewTracker(hub, clk, TrackerConfig{Timeout: 30 * time.Minute, CheckInterval: time.Minute}, func(time.Duration) { idle.Add(1) })
	tr.Start()
	defer tr.Stop()

	clk.Advance(20 * time.Minute)
	hub.Emit(SignalScroll)
	if want := epoch.Add(20 * time.Minute); !tr.LastActivity().Equal(want) {
		t.Fatalf("last activity = %v, want %v", tr.LastActivity(), want)
	}

	clk.Advance(20 * time.Minute)
	time.Sleep(10 * time.Millisecond)
	if idle.Load() != 0 {
		t.Fatal("session went idle despite recent activity")
	}

	clk.Advance(11 * time.Minute)
	waitFor(t, func() bool { return idle.Load() == 1 })
}

func TestTrackerRestartDoesNotAccumulateListeners(t *testing.T) {
	clk := clock.Fake(epoch)
	hub := NewHub()
	tr := NewTracker(hub, clk, TrackerConfig{}, nil)

	for i := 0; i < 5; i++ {
		tr.Start()
	}
	if hub.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber after repeated Start, got %d", hub.Subscribers())
	}
	if clk.Active() != 1 {
		t.Fatalf("expected 1 ticker after repeated Start, got %d", clk.Active())
	}

	tr.Stop()
	tr.Stop()
	if hub.Subscribers() != 0 || clk.Active() != 0 {
		t.Fatalf("stop left %d subscribers and %d tickers", hub.Subscribers(), clk.Active())
	}
}

package loop

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

func TestLoopRunsOnTick(t *testing.T) {
	clk := clock.Fake(epoch)
	var calls atomic.Int32
	l := New(clk, time.Minute, func(time.Time) { calls.Add(1) })
	l.Start()
	defer l.Stop()

	clk.Advance(time.Minute)
	waitFor(t, func() bool { return calls.Load() == 1 })
}

func TestLoopRestartReplacesTicker(t *testing.T) {
	clk := clock.Fake(epoch)
	l := New(clk, time.Minute, func(time.Time) {})

	l.Start()
	l.Start()
	l.Start()
	if got := clk.Active(); got != 1 {
		t.Fatalf("expected exactly one active ticker after repeated Start, got %d", got)
	}
	if got := l.Starts(); got != 3 {
		t.Fatalf("expected 3 starts, got %d", got)
	}

	l.Stop()
	l.Stop()
	if got := clk.Active(); got != 0 {
		t.Fatalf("expected no active ticker after Stop, got %d", got)
	}
	if l.Running() {
		t.Fatal("loop still reports running after Stop")
	}
}

func TestLoopStopFromCallbackDoesNotDeadlock(t *testing.T) {
	clk := clock.Fake(epoch)
	done := make(chan struct{})
	var l *Loop
	l = New(clk, time.Second, func(time.Time) {
		l.Stop()
		close(done)
	})
	l.Start()

	clk.Advance(time.Second)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not run")
	}
	if l.Running() {
		t.Fatal("loop still running after Stop from callback")
	}
}

func TestLoopNilSafe(t *testing.T) {
	var l *Loop
	l.Start()
	l.Stop()
	if l.Running() {
		t.Fatal("nil loop reports running")
	}
}

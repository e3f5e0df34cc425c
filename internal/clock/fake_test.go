package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	c := Fake(epoch)
	if got := c.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	c.Advance(5 * time.Second)
	if got, want := c.Now(), epoch.Add(5*time.Second); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeTickerFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Minute)
	defer ticker.Stop()

	c.Advance(30 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired before its interval elapsed")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case got := <-ticker.C:
		if want := epoch.Add(time.Minute); !got.Equal(want) {
			t.Fatalf("tick time = %v, want %v", got, want)
		}
	default:
		t.Fatal("ticker did not fire after its interval")
	}
}

func TestFakeTickerDropsTicksForSlowReceiver(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	c.Advance(10 * time.Second)
	c.Advance(time.Second)

	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("expected buffered ticks to be dropped")
	default:
	}
}

func TestFakeTickerStopAndReset(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)
	if got := c.Active(); got != 1 {
		t.Fatalf("Active() = %d, want 1", got)
	}

	ticker.Stop()
	if got := c.Active(); got != 0 {
		t.Fatalf("Active() after Stop = %d, want 0", got)
	}
	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}

	ticker.Reset(2 * time.Second)
	c.Advance(2 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("reset ticker did not fire")
	}
}

func TestFakeWaitForTickers(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		c.WaitForTickers(2)
		close(done)
	}()

	a := c.NewTicker(time.Second)
	b := c.NewTicker(time.Second)
	defer a.Stop()
	defer b.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForTickers did not return")
	}
}

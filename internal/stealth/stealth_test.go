package stealth

import (
	"context"
	"testing"
	"time"
)

func TestNoDelayPacer(t *testing.T) {
	p := NoDelay()
	start := time.Now()
	p.Sleep(5000, 10000)
	if err := p.Action(context.Background()); err != nil {
		t.Fatalf("Action: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("zero pacer took %v", elapsed)
	}
}

func TestPacerSleepBounds(t *testing.T) {
	p := NewPacer(600) // high ceiling so the limiter never blocks here
	start := time.Now()
	p.Sleep(10, 30)
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("sleep shorter than minimum: %v", elapsed)
	}
}

func TestPacerActionHonorsContext(t *testing.T) {
	p := NewPacer(1) // one action per minute
	ctx, cancel := context.WithCancel(context.Background())

	// Burn the burst allowance so the next Action must wait.
	if err := p.Action(ctx); err != nil {
		t.Fatalf("burst action: %v", err)
	}
	cancel()
	if err := p.Action(ctx); err == nil {
		t.Error("Action should fail once the context is canceled")
	}
}

func TestInActiveWindow(t *testing.T) {
	if !InActiveWindow("00:00", "23:59") {
		t.Error("all-day window should include now")
	}
	if InActiveWindow("00:00", "00:01") && InActiveWindow("23:58", "23:59") {
		t.Error("two disjoint one-minute windows cannot both contain now")
	}
	// Unparseable bounds fail open.
	if !InActiveWindow("not-a-time", "18:00") {
		t.Error("bad start should fail open")
	}
	if !InActiveWindow("09:00", "bad") {
		t.Error("bad end should fail open")
	}
}

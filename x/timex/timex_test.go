package timex

import (
	"context"
	"testing"
	"time"
)

func TestSystemSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if (System{}).Sleep(ctx, time.Hour) {
		t.Fatal("Sleep on cancelled context reported continue")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("Sleep did not return promptly on cancellation")
	}
}

func TestFakeAdvances(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	ctx := context.Background()

	f.Sleep(ctx, 2*time.Second)
	f.Sleep(ctx, 500*time.Millisecond)

	if got := f.Now().Sub(start); got != 2500*time.Millisecond {
		t.Fatalf("virtual time advanced %v, want 2.5s", got)
	}
	if got := f.Elapsed(); got != 2500*time.Millisecond {
		t.Fatalf("Elapsed = %v", got)
	}
	if n := len(f.Sleeps()); n != 2 {
		t.Fatalf("recorded %d sleeps, want 2", n)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if f.Sleep(cctx, time.Second) {
		t.Fatal("fake Sleep ignored cancellation")
	}
}

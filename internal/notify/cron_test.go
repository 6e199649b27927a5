package notify

import (
	"context"
	"testing"
	"time"
)

func TestNextCronDuration_ValidExpression(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 30, 0, 0, time.Local)
	// "0 9 * * *" = daily at 09:00.
	if d := nextCronDuration("0 9 * * *", now); d != 30*time.Minute {
		t.Fatalf("duration = %v, want 30m", d)
	}
}

func TestNextCronDuration_InvalidExpression(t *testing.T) {
	if d := nextCronDuration("not a cron expr", time.Now()); d != 0 {
		t.Fatalf("expected 0 for invalid expression, got %v", d)
	}
}

func TestNextCronDuration_EveryFiveMinutes(t *testing.T) {
	d := nextCronDuration("*/5 * * * *", time.Now())
	if d <= 0 || d > 5*time.Minute {
		t.Fatalf("duration = %v, want (0, 5m]", d)
	}
}

func TestRunStatsReporter_DisabledReturns(t *testing.T) {
	p := NewPool(PoolOpts{Sender: &recordingSender{}})
	defer p.Close()

	for _, expr := range []string{"", "not a cron expr"} {
		done := make(chan struct{})
		go func() {
			RunStatsReporter(context.Background(), expr, p)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("reporter with %q should return immediately", expr)
		}
	}
}

func TestRunStatsReporter_StopsOnCancel(t *testing.T) {
	p := NewPool(PoolOpts{Sender: &recordingSender{}})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunStatsReporter(ctx, "* * * * *", p)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop on cancel")
	}
}

package broker

import (
	"context"
	"testing"
	"time"
)

func TestInFlightLimiterStartsFull(t *testing.T) {
	t.Parallel()
	l := NewInFlightLimiter(3)
	if got := l.Available(); got != 3 {
		t.Errorf("Available() = %d, want 3", got)
	}
}

func TestInFlightLimiterAcquireRelease(t *testing.T) {
	t.Parallel()
	l := NewInFlightLimiter(1)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() returned error: %v", err)
	}
	if got := l.Available(); got != 0 {
		t.Errorf("Available() after acquire = %d, want 0", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Error("Acquire() on exhausted limiter returned nil, want context deadline error")
	}

	l.Release()
	if got := l.Available(); got != 1 {
		t.Errorf("Available() after release = %d, want 1", got)
	}
}

func TestInFlightLimiterOverReleaseDoesNotBlockOrPanic(t *testing.T) {
	t.Parallel()
	l := NewInFlightLimiter(1)
	l.Release() // one more than capacity
	if got := l.Available(); got != 1 {
		t.Errorf("Available() after over-release = %d, want capped at 1", got)
	}
}

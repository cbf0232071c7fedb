package broker

import "context"

// InFlightLimiter bounds how many deliveries from one Consumer may be under
// concurrent decode/write at once, independent of the broker's own QoS
// prefetch count. It is the same shape as the teacher's TokenBucket
// (internal/exchange/ratelimit.go) with the refill-over-time behavior
// dropped: credits are returned exactly once per acquired slot rather than
// leaking back in continuously, since in-flight capacity here models a
// fixed worker pool, not a requests-per-second budget.
type InFlightLimiter struct {
	credits chan struct{}
}

// NewInFlightLimiter creates a limiter allowing up to capacity concurrent
// in-flight deliveries.
func NewInFlightLimiter(capacity int) *InFlightLimiter {
	l := &InFlightLimiter{credits: make(chan struct{}, capacity)}
	for i := 0; i < capacity; i++ {
		l.credits <- struct{}{}
	}
	return l
}

// Acquire blocks until a credit is available or ctx is cancelled.
func (l *InFlightLimiter) Acquire(ctx context.Context) error {
	select {
	case <-l.credits:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a credit to the pool. Callers must release exactly once
// per successful Acquire.
func (l *InFlightLimiter) Release() {
	select {
	case l.credits <- struct{}{}:
	default:
		// Over-release would indicate a caller bug; drop rather than block
		// or panic, since this is a capacity hint, not a correctness lock.
	}
}

// Available reports the number of free credits, a metrics gauge (spec §7).
func (l *InFlightLimiter) Available() int {
	return len(l.credits)
}

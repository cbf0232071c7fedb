package broker

import (
	"testing"
	"time"
)

func TestRetryPolicyDelayDoublesPerAttempt(t *testing.T) {
	t.Parallel()
	p := RetryPolicy{MaxTries: 5, DelayHint: time.Second, MaxDelay: 10 * time.Minute}

	cases := []struct {
		retriesLeft int
		want        time.Duration
	}{
		{5, time.Second},      // first delivery, no retries consumed yet
		{4, 2 * time.Second},
		{3, 4 * time.Second},
		{2, 8 * time.Second},
		{1, 16 * time.Second},
	}
	for _, c := range cases {
		if got := p.Delay(c.retriesLeft); got != c.want {
			t.Errorf("Delay(%d) = %v, want %v", c.retriesLeft, got, c.want)
		}
	}
}

func TestRetryPolicyDelayCapsAtMaxDelay(t *testing.T) {
	t.Parallel()
	p := RetryPolicy{MaxTries: 20, DelayHint: time.Second, MaxDelay: 30 * time.Second}
	if got := p.Delay(0); got != 30*time.Second {
		t.Errorf("Delay(0) = %v, want capped at %v", got, 30*time.Second)
	}
}

func TestQueueTypeNamingAccountStream(t *testing.T) {
	t.Parallel()
	q := AccountStream("mainnet", "startup", "production", false, RetryPolicy{MaxTries: 3, DelayHint: time.Second, MaxDelay: time.Minute})

	if got, want := q.ExchangeName(), "mainnet.startup.accounts"; got != want {
		t.Errorf("ExchangeName() = %q, want %q", got, want)
	}
	if got, want := q.QueueName(), "mainnet.startup.accounts.indexer.production"; got != want {
		t.Errorf("QueueName() = %q, want %q", got, want)
	}
	if got, want := q.DeadLetterExchangeName(), "mainnet.startup.accounts.dlx"; got != want {
		t.Errorf("DeadLetterExchangeName() = %q, want %q", got, want)
	}
	if got, want := q.DelayExchangeName(), "mainnet.startup.accounts.delay"; got != want {
		t.Errorf("DelayExchangeName() = %q, want %q", got, want)
	}
	if !q.Retryable() {
		t.Error("Retryable() = false, want true")
	}
	if q.MaxLength != 8<<30 {
		t.Errorf("MaxLength = %d, want production cap %d", q.MaxLength, 8<<30)
	}
}

func TestQueueTypeNamingDebugCapsMaxLength(t *testing.T) {
	t.Parallel()
	q := AccountStream("devnet", "", "debug-alice", true, RetryPolicy{})
	if got, want := q.ExchangeName(), "devnet.accounts"; got != want {
		t.Errorf("ExchangeName() = %q, want %q", got, want)
	}
	if q.MaxLength != 100<<20 {
		t.Errorf("MaxLength = %d, want debug cap %d", q.MaxLength, 100<<20)
	}
}

func TestHTTPFetchStreamNaming(t *testing.T) {
	t.Parallel()
	q := HTTPFetchStream("indexer", "metadata-json", "production")
	if got, want := q.ExchangeName(), "indexer.metadata-json.http"; got != want {
		t.Errorf("ExchangeName() = %q, want %q", got, want)
	}
	if q.Retryable() {
		t.Error("Retryable() = true, want false (no retry policy configured)")
	}
}

func TestJobStreamHasNoLengthCap(t *testing.T) {
	t.Parallel()
	q := JobStream("indexer", "production")
	if q.MaxLength != 0 {
		t.Errorf("MaxLength = %d, want 0 (unbounded)", q.MaxLength)
	}
	if q.Prefetch != 32 {
		t.Errorf("Prefetch = %d, want 32", q.Prefetch)
	}
}

package broker

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TestRetriesLeftForFirstDeadLetter covers seed scenario S6 and testable
// property 5 (spec §8): the header is absent on the first dead-lettering,
// so the delivery must get max_tries full retries, not max_tries-1.
func TestRetriesLeftForFirstDeadLetter(t *testing.T) {
	t.Parallel()
	got := retriesLeftFor(nil, 3)
	if got != 3 {
		t.Fatalf("retriesLeftFor(nil headers, 3) = %d, want 3", got)
	}
}

func TestRetriesLeftForFirstDeadLetterWithEmptyTable(t *testing.T) {
	t.Parallel()
	got := retriesLeftFor(amqp.Table{}, 3)
	if got != 3 {
		t.Fatalf("retriesLeftFor(empty headers, 3) = %d, want 3", got)
	}
}

func TestRetriesLeftForDecrementsOnRedelivery(t *testing.T) {
	t.Parallel()
	got := retriesLeftFor(amqp.Table{"x-retries-left": int32(3)}, 3)
	if got != 2 {
		t.Fatalf("retriesLeftFor(3, 3) = %d, want 2", got)
	}
}

// TestRetriesLeftForExhaustsAfterMaxTriesRedeliveries walks the full S6
// sequence for a queue with MaxTries=3: the delivery is dead-lettered once
// (header absent) then redelivered, tracing the header this package's own
// handle() would compute and republish each time, until it is exhausted
// and dropped. Exactly 3 non-dropping passes must occur before retries
// are exhausted, matching "a queue with MaxTries=3 redelivers a
// permanently-failing delivery 3 times before dropping it".
func TestRetriesLeftForExhaustsAfterMaxTriesRedeliveries(t *testing.T) {
	t.Parallel()
	const maxTries = 3

	var headers amqp.Table
	var retries []int
	for i := 0; i < maxTries+1; i++ {
		retriesLeft := retriesLeftFor(headers, maxTries)
		if retriesLeft <= 0 {
			break
		}
		retries = append(retries, retriesLeft)
		headers = amqp.Table{"x-retries-left": int32(retriesLeft)}
	}

	want := []int{3, 2, 1}
	if len(retries) != len(want) {
		t.Fatalf("redelivery count = %d, want %d (retries seen: %v)", len(retries), len(want), retries)
	}
	for i, r := range retries {
		if r != want[i] {
			t.Fatalf("redelivery[%d] retriesLeft = %d, want %d", i, r, want[i])
		}
	}

	// One more dead-lettering after the last republish must exhaust.
	if got := retriesLeftFor(headers, maxTries); got > 0 {
		t.Fatalf("retriesLeftFor after %d redeliveries = %d, want <= 0 (exhausted)", maxTries, got)
	}
}

func TestRetriesLeftForIgnoresUnrecognizedHeaderType(t *testing.T) {
	t.Parallel()
	got := retriesLeftFor(amqp.Table{"x-retries-left": "not-a-number"}, 5)
	if got != 5 {
		t.Fatalf("retriesLeftFor with unparsable header = %d, want fallback to maxTries 5", got)
	}
}

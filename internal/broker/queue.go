// Package broker is a typed wrapper over a durable AMQP broker
// (github.com/rabbitmq/amqp091-go): exchange/queue declaration, fan-out
// binding, publish-with-confirm, prefetch-bounded consumption, and
// dead-letter retry with exponential delay (spec §4.1). It plays the role
// the teacher's internal/exchange/ws.go (reconnecting event feed) and
// internal/exchange/client.go (confirmed, retried publish) play for
// Polymarket's WebSocket/REST surface, generalized to AMQP.
package broker

import (
	"fmt"
	"time"
)

// Binding selects how a queue is attached to its exchange.
type Binding int

const (
	// BindingFanout mirrors every publish to every bound queue — the
	// topology every primary queue in this system uses (spec §4.1, §6).
	BindingFanout Binding = iota
	// BindingDirect routes by routing key. No stream in this package uses
	// it: the dead-letter and delay exchanges are declared as fanout and
	// x-delayed-message (fanout-typed) exchanges.
	BindingDirect
)

// RetryPolicy bounds dead-letter retry for one queue (spec §4.1, §6).
type RetryPolicy struct {
	MaxTries  int           // deliveries beyond this are dropped, not retried
	DelayHint time.Duration // base delay; doubles per retry attempt
	MaxDelay  time.Duration // cap on the computed delay
}

// Delay computes the x-delay header value (spec §4.1: "min(max_delay,
// delay_hint * 2^(max_tries - retries_left))").
func (p RetryPolicy) Delay(retriesLeft int) time.Duration {
	exp := p.MaxTries - retriesLeft
	if exp < 0 {
		exp = 0
	}
	d := p.DelayHint
	for i := 0; i < exp; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Suffix qualifies a queue name by deployment (spec §4.1: "production,
// staging, debug-<tag>"). Declared here rather than imported from
// internal/config so this package has no dependency on it.
type Suffix string

// QueueType is the typed contract for one logical stream: the exchange and
// queue it binds, how messages are routed, the consumer prefetch count, a
// queue length cap in bytes, and an optional retry policy. See spec §4.1
// and the queue identifiers catalogued in §6.
type QueueType struct {
	Network   string // e.g. "mainnet-beta"
	Startup   string // "" | "startup" | "startup-all" — empty means no qualifier
	Sender    string // producer-side namespace for non-account streams (§6)
	Base      string // logical stream name, e.g. "accounts", "metadata-json.http"
	Suffix    Suffix
	Binding   Binding
	Prefetch  int
	MaxLength int64 // queue length cap in bytes
	Retry     *RetryPolicy
}

// ExchangeName derives the exchange name per spec §6:
// "<network>[.startup|.startup-all].<base>" for the account/instruction
// stream, or "<sender>.<base>" for fan-out destinations.
func (q QueueType) ExchangeName() string {
	if q.Sender != "" {
		return fmt.Sprintf("%s.%s", q.Sender, q.Base)
	}
	if q.Startup != "" {
		return fmt.Sprintf("%s.%s.%s", q.Network, q.Startup, q.Base)
	}
	return fmt.Sprintf("%s.%s", q.Network, q.Base)
}

// QueueName derives the consumer queue name: "<exchange>.indexer[.<suffix>]"
// (spec §6). A non-production/staging suffix is required for debug builds
// (enforced by config.Validate, not here).
func (q QueueType) QueueName() string {
	name := q.ExchangeName() + ".indexer"
	if q.Suffix != "" {
		name += "." + string(q.Suffix)
	}
	return name
}

// DeadLetterExchangeName is the exchange dead-lettered deliveries from this
// queue are republished to (spec §6: "<exchange>.dlx").
func (q QueueType) DeadLetterExchangeName() string {
	return q.ExchangeName() + ".dlx"
}

// DelayExchangeName is the delayed-message exchange the dead-letter
// consumer republishes through, carrying the x-delay header (spec §4.1,
// §6).
func (q QueueType) DelayExchangeName() string {
	return q.ExchangeName() + ".delay"
}

// Retryable reports whether this queue participates in dead-letter retry.
func (q QueueType) Retryable() bool {
	return q.Retry != nil
}

// AccountStream builds the QueueType for the primary account/instruction
// stream (spec §6): fanout, prefetch 4096, production 8 GiB / debug 100 MiB
// max length.
func AccountStream(network, startup string, suffix Suffix, debug bool, retry RetryPolicy) QueueType {
	maxLen := int64(8 << 30)
	if debug {
		maxLen = 100 << 20
	}
	return QueueType{
		Network:   network,
		Startup:   startup,
		Base:      "accounts",
		Suffix:    suffix,
		Binding:   BindingFanout,
		Prefetch:  4096,
		MaxLength: maxLen,
		Retry:     &retry,
	}
}

// HTTPFetchStream builds the QueueType for a per-entity HTTP JSON fetch
// destination (spec §6): prefetch 1024, max-length 100 MiB.
func HTTPFetchStream(sender, entity string, suffix Suffix) QueueType {
	return QueueType{
		Sender:    sender,
		Base:      entity + ".http",
		Suffix:    suffix,
		Binding:   BindingFanout,
		Prefetch:  1024,
		MaxLength: 100 << 20,
	}
}

// SearchStream builds the QueueType for the search-upsert destination
// (spec §6): prefetch 4096, max-length 100 MiB.
func SearchStream(sender string, suffix Suffix) QueueType {
	return QueueType{
		Sender:    sender,
		Base:      "search",
		Suffix:    suffix,
		Binding:   BindingFanout,
		Prefetch:  4096,
		MaxLength: 100 << 20,
	}
}

// JobStream builds the QueueType for the job-scheduler destination (spec
// §6): prefetch 32, unbounded length.
func JobStream(sender string, suffix Suffix) QueueType {
	return QueueType{
		Sender:   sender,
		Base:     "jobs",
		Suffix:   suffix,
		Binding:  BindingFanout,
		Prefetch: 32,
	}
}

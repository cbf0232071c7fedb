// Package fanout is the Fan-out Dispatch component (spec §4.5): a
// per-destination typed producer table, lazily constructed on first use
// per queue-kind, safe for concurrent use by every handler goroutine. It
// generalizes the teacher's lazily-started per-market goroutine table
// (internal/engine.Engine.slots) into a lazily-started per-queue-kind
// producer table, keyed the same append-only way spec §5 and §9 describe
// ("a concurrent map keyed by queue-kind; entries are append-only for
// process lifetime").
package fanout

import (
	"context"
	"fmt"
	"sync"

	"github.com/holaplex-labs/indexer-core/internal/broker"
	"github.com/holaplex-labs/indexer-core/internal/config"
	"github.com/holaplex-labs/indexer-core/pkg/wire"
)

// kind identifies one of the fan-out destinations (spec §4.5).
type kind string

const (
	kindMetadataJSON  kind = "metadata-json"
	kindStoreConfig   kind = "store-config"
	kindSearch        kind = "search"
	kindJobs          kind = "jobs"
)

// Dispatch is the fan-out entry point handlers call after their database
// transaction commits (spec §4.4.6: "Dispatch is asynchronous but occurs
// after the database transaction commits; failure to dispatch is logged
// and does not unroll the transaction").
type Dispatch struct {
	conn   *broker.Conn
	sender string
	suffix config.Suffix

	mu        sync.Mutex
	producers map[kind]*broker.Producer
}

// New creates a Dispatch bound to conn. Producers are not created until
// first use (spec §4.5: "lazily constructed on first use per queue-kind").
func New(conn *broker.Conn, sender string, suffix config.Suffix) *Dispatch {
	return &Dispatch{
		conn:      conn,
		sender:    sender,
		suffix:    suffix,
		producers: make(map[kind]*broker.Producer),
	}
}

func (d *Dispatch) producerFor(k kind) (*broker.Producer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.producers[k]; ok {
		return p, nil
	}

	suffix := broker.Suffix(d.suffix)

	var qt broker.QueueType
	switch k {
	case kindMetadataJSON:
		qt = broker.HTTPFetchStream(d.sender, "metadata-json", suffix)
	case kindStoreConfig:
		qt = broker.HTTPFetchStream(d.sender, "store-config", suffix)
	case kindSearch:
		qt = broker.SearchStream(d.sender, suffix)
	case kindJobs:
		qt = broker.JobStream(d.sender, suffix)
	default:
		return nil, fmt.Errorf("fanout: unknown destination %q", k)
	}

	p, err := broker.NewProducer(d.conn, qt)
	if err != nil {
		return nil, fmt.Errorf("fanout: create producer for %s: %w", k, err)
	}
	d.producers[k] = p
	return p, nil
}

// MetadataJSON dispatches an HTTP JSON fetch message for a newly decoded
// Metadata account (spec §4.4.6).
func (d *Dispatch) MetadataJSON(ctx context.Context, msg wire.MetadataJsonFetch) error {
	p, err := d.producerFor(kindMetadataJSON)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg.Marshal(), nil)
}

// StoreConfig dispatches an HTTP JSON fetch message for a storefront
// config account.
func (d *Dispatch) StoreConfig(ctx context.Context, msg wire.StoreConfigFetch) error {
	p, err := d.producerFor(kindStoreConfig)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg.Marshal(), nil)
}

// Search dispatches a search-index upsert (spec §4.4.6: emitted after
// Listing/Offer/Purchase writes).
func (d *Dispatch) Search(ctx context.Context, msg wire.SearchUpsert) error {
	p, err := d.producerFor(kindSearch)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg.Marshal(), nil)
}

// Job dispatches a job-queue message: a reindex trigger (spec §4.4.7) or a
// materialized-view refresh.
func (d *Dispatch) Job(ctx context.Context, msg wire.JobMessage) error {
	p, err := d.producerFor(kindJobs)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg.Marshal(), nil)
}

// Close releases every producer this Dispatch has lazily created.
func (d *Dispatch) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for _, p := range d.producers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

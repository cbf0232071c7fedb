// Package writer is the Writer Gateway (spec §4.3): the sole path through
// which the ingest core touches Postgres. It acquires a pooled connection,
// runs the caller's closure inside a read-write transaction on a bounded
// worker pool, and converts panics and timeouts into errors instead of
// letting either take down the consumer process.
//
// This plays the role the teacher's internal/store.Store (atomic JSON file
// persistence guarded by one mutex) plays for position snapshots, widened
// from a single in-process mutex to a pgxpool-backed connection pool with
// an explicit bounded-concurrency gate, since the indexer's write volume
// needs real parallel writers, not one file at a time.
package writer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxFunc is a unit of work run inside a single read-write transaction. It
// must be idempotent and commutative under version dominance (spec
// §4.4.2): handlers re-running the same or an older delivery must converge
// to the same state.
type TxFunc func(ctx context.Context, tx pgx.Tx) error

// Gateway is the pooled-connection, bounded-concurrency entry point for
// all database writes.
type Gateway struct {
	pool    *pgxpool.Pool
	gate    chan struct{} // bounds concurrent closures, the "blocking worker" pool
	timeout time.Duration
	logger  *slog.Logger
}

// Config tunes the gateway's pool and concurrency bound.
type Config struct {
	URL             string
	MaxConns        int32
	BlockingThreads int
	ClosureTimeout  time.Duration
}

// Open connects the pool and sizes the concurrency gate at
// cfg.BlockingThreads, the same knob the teacher exposes for its own
// goroutine fan-out (internal/config.StrategyConfig-style tunables),
// generalized to bound simultaneous database closures instead of
// concurrent market-maker goroutines.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Gateway, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("writer: parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("writer: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("writer: ping: %w", err)
	}

	threads := cfg.BlockingThreads
	if threads <= 0 {
		threads = 8
	}
	return &Gateway{
		pool:    pool,
		gate:    make(chan struct{}, threads),
		timeout: cfg.ClosureTimeout,
		logger:  logger.With("component", "writer.gateway"),
	}, nil
}

// Run executes fn inside a read-write transaction, acquiring a connection
// from the pool and a slot from the bounded-concurrency gate first.
// Connection acquisition failures are returned as errors, which the ingest
// handlers wrap as StorageError (spec §4.3, §7); a panic inside fn is recovered and returned as an error rather than
// aborting the process. The closure is bounded by the configured
// ClosureTimeout (spec §5, default ~120s) so a stuck writer surfaces as a
// handler error instead of hanging the worker pool forever.
func (g *Gateway) Run(ctx context.Context, fn TxFunc) (err error) {
	select {
	case g.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.gate }()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("writer: closure panicked: %v", r)
		}
	}()

	conn, acqErr := g.pool.Acquire(ctx)
	if acqErr != nil {
		return fmt.Errorf("writer: acquire connection: %w", acqErr)
	}
	defer conn.Release()

	tx, txErr := conn.Begin(ctx)
	if txErr != nil {
		return fmt.Errorf("writer: begin transaction: %w", txErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
				g.logger.Warn("rollback failed", "error", rbErr)
			}
			return
		}
		if cErr := tx.Commit(ctx); cErr != nil {
			err = fmt.Errorf("writer: commit: %w", cErr)
		}
	}()

	err = fn(ctx, tx)
	return err
}

// Close drains the connection pool (spec §4.6: "drains the database pool").
func (g *Gateway) Close() {
	g.pool.Close()
}

// Stats exposes pool statistics for the metrics surface (spec §7).
func (g *Gateway) Stats() *pgxpool.Stat {
	return g.pool.Stat()
}

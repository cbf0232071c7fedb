// Package jobs runs the periodic reindex scheduler (spec §1: "run periodic
// reindex jobs"; §4.5's JobMessage is the wire shape it publishes). It is
// the ticker-driven counterpart to the teacher's market scanner
// (internal/market/scanner.go polls Gamma on an interval and pushes ranked
// results to a channel); this scheduler polls nothing and instead pushes
// RefreshTable jobs onto the job queue on an interval, for tables whose
// read-side materialized views need periodic recomputation outside any
// single handler's transaction.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/holaplex-labs/indexer-core/internal/config"
	"github.com/holaplex-labs/indexer-core/internal/fanout"
	"github.com/holaplex-labs/indexer-core/pkg/wire"
)

// Scheduler periodically dispatches RefreshTable jobs for every table named
// in config.JobsConfig.RefreshTables.
type Scheduler struct {
	dispatch *fanout.Dispatch
	tables   []string
	interval time.Duration
	logger   *slog.Logger
}

// New builds a Scheduler bound to dispatch, using cfg's interval and table
// list. A zero-length table list makes Run a no-op loop that only waits on
// ctx.
func New(dispatch *fanout.Dispatch, cfg config.JobsConfig, logger *slog.Logger) *Scheduler {
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Scheduler{
		dispatch: dispatch,
		tables:   cfg.RefreshTables,
		interval: interval,
		logger:   logger.With("component", "jobs.scheduler"),
	}
}

// Run blocks until ctx is cancelled, dispatching one RefreshTable job per
// configured table on every tick.
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.tables) == 0 {
		s.logger.Info("no refresh tables configured, scheduler idle")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshAll(ctx)
		}
	}
}

func (s *Scheduler) refreshAll(ctx context.Context) {
	for _, table := range s.tables {
		msg := wire.JobMessage{Kind: wire.JobRefreshTable, RefreshTable: table}
		if err := s.dispatch.Job(ctx, msg); err != nil {
			s.logger.Error("dispatch refresh job failed", "table", table, "error", err)
			continue
		}
		s.logger.Debug("dispatched refresh job", "table", table)
	}
}

// jober narrows *fanout.Dispatch to the one method TriggerReindexSlot
// calls, so the ingest core can pass it a dispatch fake in tests.
type jober interface {
	Job(ctx context.Context, msg wire.JobMessage) error
}

// TriggerReindexSlot dispatches a one-off ReindexSlot job, called by the
// ingest core on a confirmed slot-status update (spec §4.4.7).
func TriggerReindexSlot(ctx context.Context, dispatch jober, slot uint64) error {
	return dispatch.Job(ctx, wire.JobMessage{Kind: wire.JobReindexSlot, ReindexSlot: slot})
}

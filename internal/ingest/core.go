// Package ingest is the Ingest Core (spec §4.4): the central state machine
// that classifies decoded deliveries via internal/chain's routing table,
// applies ordered conditional writes through the Writer Gateway, and fans
// follow-up work out through internal/fanout. It generalizes the teacher's
// internal/engine.Engine — which routes order-book events to strategy and
// risk subsystems under one control loop — into a router over on-chain
// program decoders instead of market events.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/holaplex-labs/indexer-core/internal/broker"
	"github.com/holaplex-labs/indexer-core/internal/chain"
	"github.com/holaplex-labs/indexer-core/internal/config"
	"github.com/holaplex-labs/indexer-core/internal/fanout"
	"github.com/holaplex-labs/indexer-core/internal/ingesterr"
	"github.com/holaplex-labs/indexer-core/internal/jobs"
	"github.com/holaplex-labs/indexer-core/internal/writer"
	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
	"github.com/holaplex-labs/indexer-core/pkg/wire"
)

// Counters are the operator health metrics spec §7 names: "sends, recvs,
// errs, reconnects, fg_sends emitted every ~30s". Reconnects is tracked on
// broker.Conn directly; the rest live here since they are specific to the
// ingest core's own traffic.
type Counters struct {
	Recvs   atomic.Int64
	Sends   atomic.Int64 // deliveries acked
	Errs    atomic.Int64 // deliveries rejected to dead-letter
	FgSends atomic.Int64 // successful fan-out dispatches
}

// gatewayRunner narrows *writer.Gateway to the one method handlers call,
// the seam tests use to substitute an in-memory transaction fake for a
// pooled Postgres connection.
type gatewayRunner interface {
	Run(ctx context.Context, fn writer.TxFunc) error
}

// dispatcher narrows *fanout.Dispatch to its four publish methods, the
// seam tests use to substitute a no-op or recording fake for a Dispatch
// backed by a real broker connection.
type dispatcher interface {
	MetadataJSON(ctx context.Context, msg wire.MetadataJsonFetch) error
	StoreConfig(ctx context.Context, msg wire.StoreConfigFetch) error
	Search(ctx context.Context, msg wire.SearchUpsert) error
	Job(ctx context.Context, msg wire.JobMessage) error
}

// Core routes decoded deliveries to per-program handlers (spec §4.4.1's
// two-level classification), enforces write-ordering through
// internal/writer, and fans out follow-up work through internal/fanout.
type Core struct {
	registry *chain.Registry
	gateway  gatewayRunner
	dispatch dispatcher

	startupIgnore map[chainaddr.Address]struct{}
	ignoreAH      writer.IgnoreList

	nameServiceProgram chainaddr.Address
	namespaceProgram   chainaddr.Address

	logger   *slog.Logger
	Counters Counters
}

// New builds a Core from its collaborators and the filter configuration
// supplied at process start (spec §4.4.1: "a startup-filter set, supplied
// at process start").
func New(registry *chain.Registry, gateway *writer.Gateway, dispatch *fanout.Dispatch, programs config.ProgramConfig, filters config.FilterConfig, logger *slog.Logger) (*Core, error) {
	startup := make(map[chainaddr.Address]struct{}, len(filters.StartupIgnorePrograms))
	for _, s := range filters.StartupIgnorePrograms {
		addr, err := chainaddr.FromBase58(s)
		if err != nil {
			return nil, err
		}
		startup[addr] = struct{}{}
	}

	var nameService, namespace chainaddr.Address
	if programs.NameService != "" {
		var err error
		if nameService, err = chainaddr.FromBase58(programs.NameService); err != nil {
			return nil, err
		}
	}
	if programs.Namespace != "" {
		var err error
		if namespace, err = chainaddr.FromBase58(programs.Namespace); err != nil {
			return nil, err
		}
	}

	return &Core{
		registry:           registry,
		gateway:            gateway,
		dispatch:           dispatch,
		startupIgnore:      startup,
		ignoreAH:           writer.NewIgnoreList(filters.IgnoreAuctionHouses),
		nameServiceProgram: nameService,
		namespaceProgram:   namespace,
		logger:             logger.With("component", "ingest.core"),
	}, nil
}

// Run pulls deliveries from consumer until ctx is cancelled, decoding and
// processing each one and driving its Ack/Reject per the failure state
// machine in spec §4.4.8.
func (c *Core) Run(ctx context.Context, consumer *broker.Consumer) error {
	for {
		d, err := consumer.Next(ctx)
		if err != nil {
			return err
		}
		c.Counters.Recvs.Add(1)
		c.handleDelivery(ctx, d)
	}
}

func (c *Core) handleDelivery(ctx context.Context, d broker.Delivery) {
	env, err := wire.DecodeEnvelope(d.Body)
	if err != nil {
		c.logger.Warn("dropping undecodable envelope", "error", err)
		c.ackDrop(d)
		return
	}

	err = c.Process(ctx, env)
	switch {
	case err == nil:
		c.ackDrop(d)
	case isDropClass(err):
		c.logger.Debug("dropping delivery", "error", err)
		c.ackDrop(d)
	default:
		c.logger.Error("delivery failed, sending to dead-letter", "error", err)
		c.Counters.Errs.Add(1)
		if rejErr := d.Reject(); rejErr != nil {
			c.logger.Error("reject failed", "error", rejErr)
		}
	}
}

// ackDrop acknowledges a delivery whether it succeeded or was dropped by
// policy/hard-decode-failure — both are "Failed(drop)" or "Acked" outcomes
// in spec §4.4.8's state machine, neither of which enters dead-letter.
func (c *Core) ackDrop(d broker.Delivery) {
	c.Counters.Sends.Add(1)
	if err := d.Ack(); err != nil {
		c.logger.Error("ack failed", "error", err)
	}
}

// isDropClass reports whether err should be acked-and-dropped rather than
// rejected into dead-letter retry (spec §4.4.8: HardDecodeError and
// PolicyDrop both terminate at Failed(drop), not Failed(reject)).
func isDropClass(err error) bool {
	var hard *ingesterr.HardDecodeError
	var drop *ingesterr.PolicyDrop
	return errors.As(err, &hard) || errors.As(err, &drop)
}

// Process classifies and applies one envelope (spec §4.4.1). It is exported
// so tests can drive it directly without a broker.
func (c *Core) Process(ctx context.Context, env wire.Envelope) error {
	switch env.Kind {
	case wire.KindAccountUpdate:
		return c.processAccountUpdate(ctx, env.AccountUpdate)
	case wire.KindInstructionNotify:
		return c.processInstructionNotify(ctx, env.InstructionNotify)
	case wire.KindSlotStatus:
		return c.processSlotStatus(ctx, env.SlotStatusUpdate)
	default:
		return &ingesterr.PolicyDrop{Reason: "unknown envelope kind"}
	}
}

func (c *Core) processSlotStatus(ctx context.Context, s wire.SlotStatusUpdate) error {
	if s.Status != wire.SlotConfirmed {
		return &ingesterr.PolicyDrop{Reason: "slot status is not confirmed"}
	}
	if err := jobs.TriggerReindexSlot(ctx, c.dispatch, s.Slot); err != nil {
		// DispatchError: logged, never rolls back (there is no transaction
		// here to roll back) and never drives a retry (spec §4.4.7: "no
		// state is changed directly").
		c.logger.Error("dispatch reindex slot job failed", "slot", s.Slot, "error", err)
		return nil
	}
	c.Counters.FgSends.Add(1)
	return nil
}

func (c *Core) dispatchFollowUp(ctx context.Context, what string, fn func() error) {
	if err := fn(); err != nil {
		c.logger.Error("dispatch failed, not retried (recoverable via re-observation or operator refresh)",
			"what", what, "error", &ingesterr.DispatchError{Cause: err})
		return
	}
	c.Counters.FgSends.Add(1)
}

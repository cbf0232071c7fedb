// indexer is the ingest consumer binary (spec §4.6, the Process
// Supervisor): it loads configuration, dials the broker, opens the
// database pool, wires the routing registry and ingest core, and runs one
// consumer per configured queue (primary stream, its dead-letter
// supervisor, and the search-index worker) until SIGINT/SIGTERM, draining
// cleanly on the way out. This plays the role cmd/bot/main.go plays for
// the teacher's market maker: load config, wire the core component, start
// its auxiliary servers, block on a signal, shut down in order.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/holaplex-labs/indexer-core/internal/broker"
	"github.com/holaplex-labs/indexer-core/internal/chain"
	"github.com/holaplex-labs/indexer-core/internal/config"
	"github.com/holaplex-labs/indexer-core/internal/fanout"
	"github.com/holaplex-labs/indexer-core/internal/ingest"
	"github.com/holaplex-labs/indexer-core/internal/jobs"
	"github.com/holaplex-labs/indexer-core/internal/metrics"
	"github.com/holaplex-labs/indexer-core/internal/searchindex"
	"github.com/holaplex-labs/indexer-core/internal/writer"
	"github.com/holaplex-labs/indexer-core/pkg/chainaddr"
	"github.com/holaplex-labs/indexer-core/pkg/wire"
)

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		slog.Error("failed to parse flags", "error", err)
		os.Exit(1)
	}

	cfgPath := flags.configPath
	if p := os.Getenv("IDX_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	flags.applyTo(cfg)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	registry, err := buildRegistry(cfg.Programs)
	if err != nil {
		logger.Error("failed to build program registry", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := broker.Dial(ctx, cfg.Broker.URL, cfg.Broker.ReconnectBaseDelay, cfg.Broker.ReconnectMaxDelay, logger)
	if err != nil {
		logger.Error("failed to dial broker", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	gateway, err := writer.Open(ctx, writer.Config{
		URL:             cfg.WriteDatabaseURL(),
		MaxConns:        cfg.Writer.MaxConns,
		BlockingThreads: cfg.Writer.BlockingThreads,
		ClosureTimeout:  cfg.Writer.ClosureTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open writer gateway", "error", err)
		os.Exit(1)
	}
	defer gateway.Close()

	dispatch := fanout.New(conn, cfg.Sender, cfg.QueueSuffix)
	defer dispatch.Close()

	core, err := ingest.New(registry, gateway, dispatch, cfg.Programs, cfg.Filters, logger)
	if err != nil {
		logger.Error("failed to build ingest core", "error", err)
		os.Exit(1)
	}

	retry := broker.RetryPolicy{
		MaxTries:  cfg.Broker.MaxTries,
		DelayHint: cfg.Broker.DelayHint,
		MaxDelay:  cfg.Broker.MaxDelay,
	}
	primaryQueue := broker.AccountStream(string(cfg.Network), "", broker.Suffix(cfg.QueueSuffix), cfg.DebugBuild, retry)
	consumer, err := broker.NewConsumer(conn, primaryQueue)
	if err != nil {
		logger.Error("failed to create primary consumer", "error", err)
		os.Exit(1)
	}

	deadLetter, err := broker.NewDeadLetterSupervisor(conn, primaryQueue, logger)
	if err != nil {
		logger.Error("failed to create dead-letter supervisor", "error", err)
		os.Exit(1)
	}

	searchQueue := broker.SearchStream(cfg.Sender, broker.Suffix(cfg.QueueSuffix))
	searchConsumer, err := broker.NewConsumer(conn, searchQueue)
	if err != nil {
		logger.Error("failed to create search consumer", "error", err)
		os.Exit(1)
	}
	searchClient := searchindex.New(cfg.Search.Host, cfg.Search.APIKey)

	scheduler := jobs.New(dispatch, cfg.Jobs, logger)
	metricsServer := metrics.NewServer(core, conn, gateway, cfg.Metrics, logger)

	var wg sync.WaitGroup
	faultCh := make(chan error, 1)

	runTask := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && ctx.Err() == nil {
				logger.Error("task exited unexpectedly", "task", name, "error", err)
				select {
				case faultCh <- err:
				default:
				}
				cancel()
			}
		}()
	}

	runTask("ingest-core", func() error { return core.Run(ctx, consumer) })
	runTask("dead-letter", func() error { return deadLetter.Run(ctx) })
	runTask("search-index", func() error { return runSearchIndexWorker(ctx, searchConsumer, searchClient, logger) })
	runTask("metrics", func() error { return metricsServer.Run(ctx) })
	runTask("job-scheduler", func() error { scheduler.Run(ctx); return nil })

	logger.Info("indexer started",
		"network", cfg.Network, "sender", cfg.Sender, "suffix", cfg.QueueSuffix, "debug_build", cfg.DebugBuild)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		select {
		case err := <-faultCh:
			logger.Error("broker fault exceeded recovery, shutting down", "error", err)
			exitCode = 2
		default:
		}
	}

	wg.Wait()
	consumer.Close()
	searchConsumer.Close()
	deadLetter.Close()

	logger.Info("indexer stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}

// runSearchIndexWorker drains the search-upsert queue and forwards each
// document to the configured search service (spec §1: "Auxiliary workers
// ... populate a full-text search service"). The search engine itself is
// out of scope (spec §1's Non-goals); this only owns the consume-and-call
// loop, the same separation the teacher keeps between its WSFeed consumer
// and the strategy it feeds.
func runSearchIndexWorker(ctx context.Context, consumer *broker.Consumer, client *searchindex.Client, logger *slog.Logger) error {
	log := logger.With("component", "cmd.search_index_worker")
	for {
		d, err := consumer.Next(ctx)
		if err != nil {
			return err
		}
		msg, err := wire.UnmarshalSearchUpsert(d.Body)
		if err != nil {
			log.Warn("dropping undecodable search upsert", "error", err)
			if ackErr := d.Ack(); ackErr != nil {
				log.Error("ack failed", "error", ackErr)
			}
			continue
		}
		if err := client.Upsert(ctx, msg); err != nil {
			log.Error("search upsert failed, sending to dead-letter", "index", msg.Index, "error", err)
			if rejErr := d.Reject(); rejErr != nil {
				log.Error("reject failed", "error", rejErr)
			}
			continue
		}
		if err := d.Ack(); err != nil {
			log.Error("ack failed", "error", err)
		}
	}
}

func buildRegistry(p config.ProgramConfig) (*chain.Registry, error) {
	addrs := make(map[chain.ProgramKind]chainaddr.Address)
	entries := []struct {
		kind chain.ProgramKind
		addr string
	}{
		{chain.ProgramTokenMetadata, p.TokenMetadata},
		{chain.ProgramToken, p.Token},
		{chain.ProgramAuctionHouse, p.AuctionHouse},
		{chain.ProgramRewardCenter, p.RewardCenter},
		{chain.ProgramGraph, p.Graph},
		{chain.ProgramNameService, p.NameService},
		{chain.ProgramBonding, p.Bonding},
	}
	for _, e := range entries {
		if e.addr == "" {
			continue
		}
		a, err := chainaddr.FromBase58(e.addr)
		if err != nil {
			return nil, fmt.Errorf("program address %q: %w", e.addr, err)
		}
		addrs[e.kind] = a
	}
	// Namespace is a second address resolving to ProgramNameService; the
	// registry only needs one entry per kind for outer dispatch, the
	// namespace/name-service disambiguation happens inside
	// ingest.Core.applyTwitterAccount by direct address comparison.
	if p.Namespace != "" {
		if _, ok := addrs[chain.ProgramNameService]; !ok {
			a, err := chainaddr.FromBase58(p.Namespace)
			if err != nil {
				return nil, fmt.Errorf("namespace program address %q: %w", p.Namespace, err)
			}
			addrs[chain.ProgramNameService] = a
		}
	}
	return chain.NewRegistry(addrs), nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

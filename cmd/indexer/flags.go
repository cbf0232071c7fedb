package main

import (
	"github.com/spf13/pflag"

	"github.com/holaplex-labs/indexer-core/internal/config"
)

// cliFlags is the CLI surface of the core consumer binary (spec §6): a
// single invocation accepting flags for the network, broker URL, database
// URL(s), queue suffix, debug-build marker, and blocking-thread count. Every
// flag that applyTo overlays onto the config defaults to its zero value so
// an unset flag never overrides a value already present in the loaded
// YAML/env config; --config alone has a non-zero default, the path loaded
// when it is not given.
type cliFlags struct {
	configPath       string
	network          string
	brokerURL        string
	databaseURL      string
	databaseWriteURL string
	queueSuffix      string
	debugBuild       bool
	blockingThreads  int
	metricsAddr      string
}

func parseFlags(args []string) (*cliFlags, error) {
	fs := pflag.NewFlagSet("indexer", pflag.ContinueOnError)
	f := &cliFlags{}

	fs.StringVar(&f.configPath, "config", "configs/config.yaml", "path to the YAML configuration file")
	fs.StringVar(&f.network, "network", "", "network identifier: mainnet, devnet, or testnet")
	fs.StringVar(&f.brokerURL, "broker-url", "", "AMQP broker connection URL")
	fs.StringVar(&f.databaseURL, "database-url", "", "Postgres connection URL")
	fs.StringVar(&f.databaseWriteURL, "database-write-url", "", "Postgres write-replica connection URL, if distinct from --database-url")
	fs.StringVar(&f.queueSuffix, "queue-suffix", "", "queue name suffix: production, staging, or debug-<tag>")
	fs.BoolVar(&f.debugBuild, "debug", false, "mark this as a debug build (requires a non-production queue suffix)")
	fs.IntVar(&f.blockingThreads, "blocking-threads", 0, "writer gateway blocking worker pool size (0 = use config default)")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "operator metrics HTTP listen address")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// applyTo overlays any explicitly set flags onto cfg, giving the CLI
// surface precedence over the file/env-layered config it was loaded from.
func (f *cliFlags) applyTo(cfg *config.Config) {
	if f.network != "" {
		cfg.Network = config.Network(f.network)
	}
	if f.brokerURL != "" {
		cfg.Broker.URL = f.brokerURL
	}
	if f.databaseURL != "" {
		cfg.DatabaseURL = f.databaseURL
	}
	if f.databaseWriteURL != "" {
		cfg.DatabaseWrite = f.databaseWriteURL
	}
	if f.queueSuffix != "" {
		cfg.QueueSuffix = config.Suffix(f.queueSuffix)
	}
	if f.debugBuild {
		cfg.DebugBuild = true
	}
	if f.blockingThreads > 0 {
		cfg.Writer.BlockingThreads = f.blockingThreads
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

package main

import (
	"testing"

	"github.com/holaplex-labs/indexer-core/internal/config"
)

func TestParseFlagsDefaults(t *testing.T) {
	f, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if f.configPath != "configs/config.yaml" {
		t.Fatalf("configPath = %q, want default", f.configPath)
	}
	if f.debugBuild {
		t.Fatal("debugBuild should default to false")
	}
}

func TestParseFlagsOverride(t *testing.T) {
	f, err := parseFlags([]string{
		"--network=devnet",
		"--broker-url=amqp://guest@localhost",
		"--queue-suffix=debug-alice",
		"--debug",
		"--blocking-threads=4",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	cfg := &config.Config{Network: config.NetworkMainnet, QueueSuffix: config.SuffixProduction}
	f.applyTo(cfg)

	if cfg.Network != config.NetworkDevnet {
		t.Fatalf("Network = %q, want devnet", cfg.Network)
	}
	if cfg.Broker.URL != "amqp://guest@localhost" {
		t.Fatalf("Broker.URL = %q", cfg.Broker.URL)
	}
	if cfg.QueueSuffix != "debug-alice" {
		t.Fatalf("QueueSuffix = %q", cfg.QueueSuffix)
	}
	if !cfg.DebugBuild {
		t.Fatal("DebugBuild should be true")
	}
	if cfg.Writer.BlockingThreads != 4 {
		t.Fatalf("Writer.BlockingThreads = %d, want 4", cfg.Writer.BlockingThreads)
	}
}

func TestApplyToLeavesUnsetFieldsAlone(t *testing.T) {
	f := &cliFlags{}
	cfg := &config.Config{Network: config.NetworkTestnet, QueueSuffix: config.SuffixStaging}
	f.applyTo(cfg)

	if cfg.Network != config.NetworkTestnet {
		t.Fatalf("Network changed to %q despite no --network flag", cfg.Network)
	}
	if cfg.QueueSuffix != config.SuffixStaging {
		t.Fatalf("QueueSuffix changed to %q despite no --queue-suffix flag", cfg.QueueSuffix)
	}
}

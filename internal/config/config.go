// Package config defines all configuration for the ingest consumer.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// secrets overridable via IDX_* environment variables, the same layering
// the teacher bot uses for its wallet/API secrets.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Network identifies which cluster this consumer indexes.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
	NetworkTestnet Network = "testnet"
)

// Suffix distinguishes queue names across deployments sharing one broker
// (spec §4.1: "production/staging/debug-<tag>").
type Suffix string

const (
	SuffixProduction Suffix = "production"
	SuffixStaging    Suffix = "staging"
)

// IsDebug reports whether s is a debug-<tag> suffix rather than one of the
// two well-known deployment suffixes.
func (s Suffix) IsDebug() bool {
	return s != SuffixProduction && s != SuffixStaging
}

// Config is the top-level configuration for the core consumer binary.
type Config struct {
	Network       Network       `mapstructure:"network"`
	// Sender namespaces the fan-out exchanges this process publishes onto
	// (spec §6: "<sender>.metadata-json.http", "<sender>.search", etc.).
	Sender        string        `mapstructure:"sender"`
	QueueSuffix   Suffix        `mapstructure:"queue_suffix"`
	DebugBuild    bool          `mapstructure:"debug_build"`
	DatabaseURL   string        `mapstructure:"database_url"`
	DatabaseWrite string        `mapstructure:"database_write_url"`
	Broker        BrokerConfig  `mapstructure:"broker"`
	Filters       FilterConfig  `mapstructure:"filters"`
	Writer        WriterConfig  `mapstructure:"writer"`
	Search        SearchConfig  `mapstructure:"search"`
	Programs      ProgramConfig `mapstructure:"programs"`
	Logging       LoggingConfig `mapstructure:"logging"`
	Metrics       MetricsConfig `mapstructure:"metrics"`
	Jobs          JobsConfig    `mapstructure:"jobs"`
}

// JobsConfig drives the periodic materialized-view refresh scheduler (spec
// §1: "run periodic reindex jobs").
type JobsConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RefreshTables   []string      `mapstructure:"refresh_tables"`
}

// ProgramConfig carries the per-network on-chain program addresses the
// routing registry (internal/chain.Registry) dispatches on (spec §4.2,
// §4.6: "configuration load").
type ProgramConfig struct {
	TokenMetadata string `mapstructure:"token_metadata"`
	Token         string `mapstructure:"token"`
	AuctionHouse  string `mapstructure:"auction_house"`
	RewardCenter  string `mapstructure:"reward_center"`
	Graph         string `mapstructure:"graph"`
	NameService   string `mapstructure:"name_service"`
	Namespace     string `mapstructure:"namespace"`
	Bonding       string `mapstructure:"bonding"`
}

// BrokerConfig addresses the durable AMQP broker.
type BrokerConfig struct {
	URL                string        `mapstructure:"url"`
	ReconnectBaseDelay time.Duration `mapstructure:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `mapstructure:"reconnect_max_delay"`
	MaxTries           int           `mapstructure:"max_tries"`
	DelayHint          time.Duration `mapstructure:"delay_hint"`
	MaxDelay           time.Duration `mapstructure:"max_delay"`
}

// FilterConfig holds the configuration-dependent ignore lists spec §9 Open
// Questions 1–2 leave to deployment configuration.
type FilterConfig struct {
	// StartupIgnorePrograms lists owner-program addresses (base58) for
	// which AccountUpdates with is_startup=true are dropped without a
	// database write (spec §4.4.1, testable property 7).
	StartupIgnorePrograms []string `mapstructure:"startup_ignore_programs"`
	// IgnoreAuctionHouses lists auction house addresses (base58) whose
	// Listing/Offer/Purchase rows still get written but never emit
	// MarketplaceActivity/FeedEvent rows (spec §4.4.4).
	IgnoreAuctionHouses []string `mapstructure:"ignore_auction_houses"`
}

// WriterConfig tunes the writer gateway's blocking connection pool.
type WriterConfig struct {
	BlockingThreads int           `mapstructure:"blocking_threads"`
	MaxConns        int32         `mapstructure:"max_conns"`
	ClosureTimeout  time.Duration `mapstructure:"closure_timeout"`
}

// SearchConfig points at the search service the SearchUpsert fan-out
// destination describes documents for. The search engine itself is out of
// scope (spec §1); this only shapes the document the core publishes.
type SearchConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"api_key"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the operator health/metrics HTTP+WS surface
// (spec §7: sends/recvs/errs/reconnects/fg_sends emitted every ~30s).
type MetricsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	EmitInterval time.Duration `mapstructure:"emit_interval"`
}

// Load reads config from a YAML file with IDX_-prefixed env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("IDX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	if url := os.Getenv("DATABASE_WRITE_URL"); url != "" {
		cfg.DatabaseWrite = url
	}
	if url := os.Getenv("IDX_BROKER_URL"); url != "" {
		cfg.Broker.URL = url
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("broker.reconnect_base_delay", time.Second)
	v.SetDefault("broker.reconnect_max_delay", 30*time.Second)
	v.SetDefault("broker.max_tries", 3)
	v.SetDefault("broker.delay_hint", 2*time.Second)
	v.SetDefault("broker.max_delay", 60*time.Second)
	v.SetDefault("writer.blocking_threads", runtime.NumCPU()*2)
	v.SetDefault("writer.max_conns", 10)
	v.SetDefault("writer.closure_timeout", 120*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.emit_interval", 30*time.Second)
	v.SetDefault("sender", "indexer")
	v.SetDefault("jobs.refresh_interval", 10*time.Minute)
}

// WriteDatabaseURL returns the URL writes should use, falling back to the
// general DatabaseURL when no write-specific replica URL is configured.
func (c *Config) WriteDatabaseURL() string {
	if c.DatabaseWrite != "" {
		return c.DatabaseWrite
	}
	return c.DatabaseURL
}

// Validate checks all required fields and the debug-suffix rule in spec
// §4.1 ("debug builds must specify a non-empty suffix").
func (c *Config) Validate() error {
	switch c.Network {
	case NetworkMainnet, NetworkDevnet, NetworkTestnet:
	default:
		return fmt.Errorf("network must be one of mainnet, devnet, testnet (got %q)", c.Network)
	}
	if c.DatabaseURL == "" && c.DatabaseWrite == "" {
		return fmt.Errorf("database_url or database_write_url is required (set DATABASE_URL/DATABASE_WRITE_URL)")
	}
	if c.Broker.URL == "" {
		return fmt.Errorf("broker.url is required (set IDX_BROKER_URL)")
	}
	if c.QueueSuffix == "" {
		return fmt.Errorf("queue_suffix is required")
	}
	if c.DebugBuild && !c.QueueSuffix.IsDebug() {
		return fmt.Errorf("debug builds must use a non-production queue_suffix, got %q", c.QueueSuffix)
	}
	if !c.DebugBuild && c.QueueSuffix.IsDebug() {
		return fmt.Errorf("queue_suffix %q looks like a debug tag but debug_build is false", c.QueueSuffix)
	}
	return nil
}

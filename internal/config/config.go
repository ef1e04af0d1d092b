// Package config defines the engine configuration and validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration. Fields are populated from a TOML file
// and then optionally overridden by ENGINE_* environment variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Executor   ExecutorConfig   `toml:"executor"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds the trading wallet credentials. Only required when the
// live executor is selected.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	Address          string `toml:"address"`
}

// PolymarketConfig holds Polymarket endpoints and discovery thresholds.
type PolymarketConfig struct {
	Enabled      bool    `toml:"enabled"`
	GammaHost    string  `toml:"gamma_host"`
	ClobHost     string  `toml:"clob_host"`
	WsHost       string  `toml:"ws_host"`
	ChainID      int     `toml:"chain_id"`
	MinVolume    float64 `toml:"min_volume"`
	MinLiquidity float64 `toml:"min_liquidity"`
	MaxMarkets   int     `toml:"max_markets"`
}

// KalshiConfig holds Kalshi endpoints, credentials, and discovery thresholds.
type KalshiConfig struct {
	Enabled           bool    `toml:"enabled"`
	BaseURL           string  `toml:"base_url"`
	WsURL             string  `toml:"ws_url"`
	ApiKey            string  `toml:"api_key"`
	RsaPrivateKeyPath string  `toml:"rsa_private_key_path"`
	MinVolume         float64 `toml:"min_volume"`
	MinOpenInterest   float64 `toml:"min_open_interest"`
	MaxMarkets        int     `toml:"max_markets"`
}

// PipelineConfig holds channel capacities and cache sharding. The defaults
// match the designed backpressure envelope; override with care.
type PipelineConfig struct {
	EventBuffer     int      `toml:"event_buffer"`
	LaneBuffer      int      `toml:"lane_buffer"`
	NotifyBuffer    int      `toml:"notify_buffer"`
	SignalBuffer    int      `toml:"signal_buffer"`
	LaneSendTimeout duration `toml:"lane_send_timeout"`
	CacheShards     int      `toml:"cache_shards"`
	SeedParallelism int      `toml:"seed_parallelism"`
}

// StrategyConfig holds per-strategy parameters.
type StrategyConfig struct {
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
}

// ArbitrageConfig parameterizes the cross-outcome arbitrage strategy.
type ArbitrageConfig struct {
	Enabled bool    `toml:"enabled"`
	MinEdge float64 `toml:"min_edge"`
	Size    float64 `toml:"size"`
}

// ExecutorConfig selects and tunes the execution layer.
type ExecutorConfig struct {
	Kind     string   `toml:"kind"` // "paper" or "live"
	DedupTTL duration `toml:"dedup_ttl"`
}

// MetricsConfig holds the ops server parameters.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// PostgresConfig holds the optional fill-journal connection.
type PostgresConfig struct {
	Enabled      bool   `toml:"enabled"`
	DSN          string `toml:"dsn"`
	PoolMaxConns int    `toml:"pool_max_conns"`
}

// RedisConfig holds the optional signal-publisher connection.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			Enabled:      true,
			GammaHost:    "https://gamma-api.polymarket.com",
			ClobHost:     "https://clob.polymarket.com",
			WsHost:       "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			ChainID:      137,
			MinVolume:    10000,
			MinLiquidity: 1000,
			MaxMarkets:   200,
		},
		Kalshi: KalshiConfig{
			BaseURL:         "https://api.elections.kalshi.com/trade-api/v2",
			WsURL:           "wss://api.elections.kalshi.com/trade-api/ws/v2",
			MinVolume:       5000,
			MinOpenInterest: 1000,
			MaxMarkets:      200,
		},
		Pipeline: PipelineConfig{
			EventBuffer:     4096,
			LaneBuffer:      1024,
			NotifyBuffer:    512,
			SignalBuffer:    64,
			LaneSendTimeout: duration{5 * time.Millisecond},
			CacheShards:     16,
			SeedParallelism: 10,
		},
		Strategy: StrategyConfig{
			Arbitrage: ArbitrageConfig{
				Enabled: true,
				MinEdge: 0.0,
				Size:    10,
			},
		},
		Executor: ExecutorConfig{
			Kind:     "paper",
			DedupTTL: duration{2 * time.Minute},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9000",
		},
		Postgres: PostgresConfig{PoolMaxConns: 4},
		Redis:    RedisConfig{Addr: "localhost:6379", Channel: "engine.signals"},
		LogLevel: "info",
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if !c.Polymarket.Enabled && !c.Kalshi.Enabled {
		return fmt.Errorf("config: no venue enabled")
	}
	switch c.Executor.Kind {
	case "paper":
	case "live":
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			return fmt.Errorf("config: live executor requires wallet.private_key or wallet.encrypted_key_path")
		}
		if c.Kalshi.Enabled && c.Kalshi.ApiKey == "" {
			return fmt.Errorf("config: live executor on kalshi requires kalshi.api_key")
		}
	default:
		return fmt.Errorf("config: unsupported executor kind %q", c.Executor.Kind)
	}
	if c.Strategy.Arbitrage.Size <= 0 {
		return fmt.Errorf("config: arbitrage size must be positive")
	}
	if c.Strategy.Arbitrage.MinEdge < 0 {
		return fmt.Errorf("config: arbitrage min_edge must be >= 0")
	}
	for name, v := range map[string]int{
		"event_buffer":  c.Pipeline.EventBuffer,
		"lane_buffer":   c.Pipeline.LaneBuffer,
		"notify_buffer": c.Pipeline.NotifyBuffer,
		"signal_buffer": c.Pipeline.SignalBuffer,
	} {
		if v <= 0 {
			return fmt.Errorf("config: pipeline %s must be positive", name)
		}
	}
	return nil
}

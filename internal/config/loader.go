package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// duration wraps time.Duration so it can be written as "5ms" in TOML.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ENGINE_* environment variable overrides, and
// returns the final Config. The caller should invoke Validate afterwards.
// A missing file is not an error; defaults plus env then apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Load .env if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ENGINE_* environment variables and
// overwrites the corresponding fields when set. Operators inject secrets at
// deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "PRIVATE_KEY")
	setStr(&cfg.Wallet.PrivateKey, "ENGINE_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "ENGINE_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "ENGINE_WALLET_KEY_PASSWORD")
	setStr(&cfg.Wallet.Address, "ENGINE_WALLET_ADDRESS")

	// ── Polymarket ──
	setBool(&cfg.Polymarket.Enabled, "ENGINE_POLYMARKET_ENABLED")
	setStr(&cfg.Polymarket.GammaHost, "ENGINE_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "ENGINE_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.WsHost, "ENGINE_POLYMARKET_WS_HOST")
	setFloat64(&cfg.Polymarket.MinVolume, "ENGINE_POLYMARKET_MIN_VOLUME")
	setFloat64(&cfg.Polymarket.MinLiquidity, "ENGINE_POLYMARKET_MIN_LIQUIDITY")
	setInt(&cfg.Polymarket.MaxMarkets, "ENGINE_POLYMARKET_MAX_MARKETS")

	// ── Kalshi ──
	setBool(&cfg.Kalshi.Enabled, "ENGINE_KALSHI_ENABLED")
	setStr(&cfg.Kalshi.BaseURL, "ENGINE_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.WsURL, "ENGINE_KALSHI_WS_URL")
	setStr(&cfg.Kalshi.ApiKey, "ENGINE_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "ENGINE_KALSHI_RSA_PRIVATE_KEY_PATH")
	setFloat64(&cfg.Kalshi.MinVolume, "ENGINE_KALSHI_MIN_VOLUME")
	setInt(&cfg.Kalshi.MaxMarkets, "ENGINE_KALSHI_MAX_MARKETS")

	// ── Strategy ──
	setBool(&cfg.Strategy.Arbitrage.Enabled, "ENGINE_STRATEGY_ARBITRAGE_ENABLED")
	setFloat64(&cfg.Strategy.Arbitrage.MinEdge, "ENGINE_STRATEGY_ARBITRAGE_MIN_EDGE")
	setFloat64(&cfg.Strategy.Arbitrage.Size, "ENGINE_STRATEGY_ARBITRAGE_SIZE")

	// ── Executor ──
	setStr(&cfg.Executor.Kind, "ENGINE_EXECUTOR_KIND")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "ENGINE_METRICS_ENABLED")
	setStr(&cfg.Metrics.Addr, "ENGINE_METRICS_ADDR")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ENGINE_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ENGINE_POSTGRES_DSN")
	setInt(&cfg.Postgres.PoolMaxConns, "ENGINE_POSTGRES_POOL_MAX_CONNS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ENGINE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ENGINE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ENGINE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ENGINE_REDIS_DB")
	setStr(&cfg.Redis.Channel, "ENGINE_REDIS_CHANNEL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ENGINE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

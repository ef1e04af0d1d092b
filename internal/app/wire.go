package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/simrat12/prediction-engine/internal/adapter"
	"github.com/simrat12/prediction-engine/internal/bus"
	"github.com/simrat12/prediction-engine/internal/cache"
	"github.com/simrat12/prediction-engine/internal/config"
	"github.com/simrat12/prediction-engine/internal/crypto"
	"github.com/simrat12/prediction-engine/internal/domain"
	"github.com/simrat12/prediction-engine/internal/executor"
	"github.com/simrat12/prediction-engine/internal/metrics"
	"github.com/simrat12/prediction-engine/internal/platform/kalshi"
	"github.com/simrat12/prediction-engine/internal/platform/polymarket"
	"github.com/simrat12/prediction-engine/internal/router"
	"github.com/simrat12/prediction-engine/internal/store/postgres"
	"github.com/simrat12/prediction-engine/internal/strategy"
)

// Deps holds every wired component of the pipeline.
type Deps struct {
	Cache    *cache.Cache
	Events   chan domain.MarketEvent
	Adapters []adapter.Adapter
	Router   *router.Router
	Engine   *strategy.Engine
	Bridge   *executor.Bridge
	Metrics  *metrics.Server
}

// Wire builds the full pipeline from config: channels at their designed
// capacities, adapters for the enabled venues, the strategy engine over the
// merged static tables, and the selected executor. The returned cleanup
// closes external connections (journal, publisher).
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	c := cache.New(cfg.Pipeline.CacheShards)
	events := make(chan domain.MarketEvent, cfg.Pipeline.EventBuffer)
	notify := make(chan domain.Notification, cfg.Pipeline.NotifyBuffer)
	signals := make(chan domain.TradeSignal, cfg.Pipeline.SignalBuffer)

	// ── Live trading clients (also used for seeding) ──
	var signer *crypto.Signer
	if cfg.Executor.Kind == "live" {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("app: load wallet key: %w", err)
		}
		signer, err = crypto.NewSigner(keyHex, cfg.Polymarket.ChainID)
		if err != nil {
			return nil, nil, fmt.Errorf("app: init signer: %w", err)
		}
	}

	clobClient := polymarket.NewClobClient(cfg.Polymarket.ClobHost, signer)

	var kalshiClient *kalshi.Client
	if cfg.Kalshi.Enabled {
		kalshiClient = kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey)
		if cfg.Kalshi.RsaPrivateKeyPath != "" {
			pemBytes, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
			if err != nil {
				return nil, nil, fmt.Errorf("app: read kalshi key: %w", err)
			}
			if err := kalshiClient.SetRSAPrivateKey(pemBytes); err != nil {
				return nil, nil, fmt.Errorf("app: %w", err)
			}
		}
	}

	// ── Adapters ──
	var adapters []adapter.Adapter
	if cfg.Polymarket.Enabled {
		a, err := adapter.InitPolymarket(ctx, cfg.Polymarket, cfg.Pipeline.SeedParallelism, clobClient, events, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		adapters = append(adapters, a)
	}
	if cfg.Kalshi.Enabled {
		a, err := adapter.InitKalshi(ctx, cfg.Kalshi, cfg.Pipeline.SeedParallelism, kalshiClient, events, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		adapters = append(adapters, a)
	}
	if len(adapters) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("app: no adapters initialized")
	}

	// Merge the per-venue static tables; token ids are globally unique.
	markets := make(domain.MarketMap)
	tokenToMarket := make(domain.TokenToMarket)
	for _, a := range adapters {
		mm, ttm := a.Tables()
		for id, info := range mm {
			markets[id] = info
		}
		for token, id := range ttm {
			tokenToMarket[token] = id
		}
	}

	// ── Pipeline tasks ──
	rt := router.New(events, notify, c, cfg.Pipeline.LaneBuffer, cfg.Pipeline.LaneSendTimeout.Duration, logger)

	registry := strategy.NewRegistry()
	if cfg.Strategy.Arbitrage.Enabled {
		registry.Register(strategy.NewArbitrage(cfg.Strategy.Arbitrage.MinEdge, cfg.Strategy.Arbitrage.Size))
	}
	engine := strategy.NewEngine(notify, signals, c, markets, tokenToMarket, registry, logger)

	var exec executor.Executor
	switch cfg.Executor.Kind {
	case "live":
		// A typed nil must not reach the interface: legs for a disabled
		// venue reject instead of dereferencing a nil client.
		var kp executor.KalshiPlacer
		if kalshiClient != nil {
			kp = kalshiClient
		}
		exec = executor.NewLiveExecutor(clobClient, kp, logger)
	default:
		exec = executor.NewPaperExecutor(logger)
	}
	bridge := executor.NewBridge(signals, exec, markets, tokenToMarket, cfg.Executor.DedupTTL.Duration, logger)

	if cfg.Postgres.Enabled {
		journal, err := postgres.NewFillStore(ctx, cfg.Postgres.DSN, cfg.Postgres.PoolMaxConns)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, journal.Close)
		bridge.SetJournal(journal)
	}
	if cfg.Redis.Enabled {
		publisher, err := bus.NewPublisher(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = publisher.Close() })
		bridge.SetPublisher(publisher)
	}

	deps := &Deps{
		Cache:    c,
		Events:   events,
		Adapters: adapters,
		Router:   rt,
		Engine:   engine,
		Bridge:   bridge,
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.NewServer(cfg.Metrics.Addr, c, logger)
	}
	return deps, cleanup, nil
}

package strategy

import (
	"context"
	"log/slog"

	"github.com/simrat12/prediction-engine/internal/domain"
	"github.com/simrat12/prediction-engine/internal/metrics"
)

// engineDropLabel tags drops that happen before any strategy runs (unknown
// token, missing market info, missing cache entry).
const engineDropLabel = "engine"

// Engine consumes change notifications, builds an evaluation context from
// the cache and static tables, and runs every registered strategy in order.
// Resulting signals go to the signal channel; a full channel drops the
// signal with a counter rather than stalling evaluation.
type Engine struct {
	notify        <-chan domain.Notification
	signals       chan<- domain.TradeSignal
	states        domain.StateReader
	markets       domain.MarketMap
	tokenToMarket domain.TokenToMarket
	registry      *Registry
	logger        *slog.Logger
}

// NewEngine creates an Engine over the merged static tables of all venues.
func NewEngine(
	notify <-chan domain.Notification,
	signals chan<- domain.TradeSignal,
	states domain.StateReader,
	markets domain.MarketMap,
	tokenToMarket domain.TokenToMarket,
	registry *Registry,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		notify:        notify,
		signals:       signals,
		states:        states,
		markets:       markets,
		tokenToMarket: tokenToMarket,
		registry:      registry,
		logger:        logger.With(slog.String("component", "strategy_engine")),
	}
}

// Run processes notifications until the channel closes, then closes the
// signal channel so the execution bridge drains and stops.
func (e *Engine) Run(ctx context.Context) error {
	defer func() {
		close(e.signals)
		e.logger.Info("strategy engine stopped")
	}()

	e.logger.Info("strategy engine started",
		slog.Any("strategies", e.registry.Names()),
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-e.notify:
			if !ok {
				return nil
			}
			e.handle(n)
		}
	}
}

// handle evaluates one notification.
func (e *Engine) handle(n domain.Notification) {
	marketID, ok := e.tokenToMarket[n.Key.TokenID]
	if !ok {
		metrics.StrategySignalDropsTotal.WithLabelValues(engineDropLabel).Inc()
		return
	}
	if _, ok := e.markets[marketID]; !ok {
		metrics.StrategySignalDropsTotal.WithLabelValues(engineDropLabel).Inc()
		return
	}
	state, ok := e.states.Get(n.Key)
	if !ok {
		metrics.StrategySignalDropsTotal.WithLabelValues(engineDropLabel).Inc()
		return
	}

	ec := domain.EvalContext{
		Key:           n.Key,
		State:         state,
		States:        e.states,
		Markets:       e.markets,
		TokenToMarket: e.tokenToMarket,
		WSReceivedAt:  n.WSReceivedAt,
	}

	for _, s := range e.registry.List() {
		sig, fired := s.Evaluate(ec)
		if !fired {
			continue
		}
		sig.Venue = n.Key.Venue
		e.emit(sig)
	}
}

// emit forwards one signal without blocking; a full channel is a dropped
// signal, not a stalled tick.
func (e *Engine) emit(sig domain.TradeSignal) {
	select {
	case e.signals <- sig:
		metrics.StrategySignalsTotal.WithLabelValues(sig.Strategy, string(sig.Venue)).Inc()
		metrics.StrategySignalEdge.WithLabelValues(sig.Strategy).Observe(sig.Edge)
		e.logger.Debug("signal emitted",
			slog.String("signal_id", sig.ID),
			slog.String("strategy", sig.Strategy),
			slog.String("market", sig.MarketID),
			slog.Float64("edge", sig.Edge),
		)
	default:
		metrics.StrategySignalDropsTotal.WithLabelValues(sig.Strategy).Inc()
		e.logger.Warn("signal channel full, dropping",
			slog.String("strategy", sig.Strategy),
			slog.String("market", sig.MarketID),
		)
	}
}

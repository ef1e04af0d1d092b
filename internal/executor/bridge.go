// Package executor converts trade signals into execution intents and runs
// them through the configured executor (paper or live).
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/simrat12/prediction-engine/internal/domain"
	"github.com/simrat12/prediction-engine/internal/metrics"
)

// Executor places the legs of one intent. Implementations must not panic on
// venue errors and must return exactly one leg result per input leg, in
// input order.
type Executor interface {
	Name() string
	Execute(ctx context.Context, intent domain.ExecutionIntent) (domain.ExecutionReport, error)
}

// FillJournal records completed executions; optional.
type FillJournal interface {
	RecordExecution(ctx context.Context, sig domain.TradeSignal, intent domain.ExecutionIntent, report domain.ExecutionReport) error
}

// SignalPublisher mirrors signals to an external bus; optional.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, sig domain.TradeSignal) error
}

// Bridge owns the signal channel receiver. For each signal it builds an
// ExecutionIntent, invokes the executor, and observes latency and outcome
// metrics. Optional sinks receive the results best-effort.
type Bridge struct {
	signals       <-chan domain.TradeSignal
	exec          Executor
	markets       domain.MarketMap
	tokenToMarket domain.TokenToMarket
	dedup         *dedup
	journal       FillJournal
	publisher     SignalPublisher
	logger        *slog.Logger

	cleanupInterval time.Duration
}

// NewBridge creates a Bridge. The static tables resolve each signal's
// neg-risk routing flag.
func NewBridge(
	signals <-chan domain.TradeSignal,
	exec Executor,
	markets domain.MarketMap,
	tokenToMarket domain.TokenToMarket,
	dedupTTL time.Duration,
	logger *slog.Logger,
) *Bridge {
	return &Bridge{
		signals:         signals,
		exec:            exec,
		markets:         markets,
		tokenToMarket:   tokenToMarket,
		dedup:           newDedup(dedupTTL),
		logger:          logger.With(slog.String("component", "execution_bridge")),
		cleanupInterval: 30 * time.Second,
	}
}

// SetJournal attaches an optional fill journal.
func (b *Bridge) SetJournal(j FillJournal) { b.journal = j }

// SetPublisher attaches an optional signal publisher.
func (b *Bridge) SetPublisher(p SignalPublisher) { b.publisher = p }

// Run processes signals until the channel closes.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("execution bridge started", slog.String("executor", b.exec.Name()))
	defer b.logger.Info("execution bridge stopped")

	cleanupTicker := time.NewTicker(b.cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-b.signals:
			if !ok {
				return nil
			}
			b.process(ctx, sig)
		case <-cleanupTicker.C:
			b.dedup.cleanup()
		}
	}
}

// process runs one signal through conversion, execution, and recording.
func (b *Bridge) process(ctx context.Context, sig domain.TradeSignal) {
	log := b.logger.With(
		slog.String("signal_id", sig.ID),
		slog.String("strategy", sig.Strategy),
		slog.String("market", sig.MarketID),
	)

	if b.dedup.isDuplicate(sig.ID) {
		log.Debug("signal deduplicated, skipping")
		return
	}

	if b.publisher != nil {
		if err := b.publisher.PublishSignal(ctx, sig); err != nil {
			log.Warn("signal publish failed", slog.String("error", err.Error()))
		}
	}

	intent := b.toIntent(sig)
	report, err := b.exec.Execute(ctx, intent)
	completedAt := time.Now()
	if err != nil {
		log.Error("execution failed", slog.String("error", err.Error()))
		return
	}
	report.IntentID = intent.ID
	if report.CompletedAt.IsZero() {
		report.CompletedAt = completedAt
	}

	b.observe(sig, intent, report)

	if b.journal != nil {
		if err := b.journal.RecordExecution(ctx, sig, intent, report); err != nil {
			log.Warn("fill journal write failed", slog.String("error", err.Error()))
		}
	}
}

// toIntent converts a signal's legs one-to-one. The neg-risk flag comes
// from the market containing the first leg's token.
func (b *Bridge) toIntent(sig domain.TradeSignal) domain.ExecutionIntent {
	legs := make([]domain.OrderLeg, len(sig.Legs))
	for i, l := range sig.Legs {
		legs[i] = domain.OrderLeg{
			TokenID: l.TokenID,
			Side:    l.Side,
			Price:   l.Price,
			Size:    l.Size,
		}
	}

	negRisk := false
	if len(sig.Legs) > 0 {
		if marketID, ok := b.tokenToMarket[sig.Legs[0].TokenID]; ok {
			if info, ok := b.markets[marketID]; ok {
				negRisk = info.NegRisk
			}
		}
	}

	return domain.ExecutionIntent{
		ID:        uuid.New().String(),
		Venue:     sig.Venue,
		MarketID:  sig.MarketID,
		Legs:      legs,
		NegRisk:   negRisk,
		CreatedAt: time.Now(),
	}
}

// observe records per-strategy latency histograms and per-leg outcome
// counters.
func (b *Bridge) observe(sig domain.TradeSignal, intent domain.ExecutionIntent, report domain.ExecutionReport) {
	signalToFill := report.CompletedAt.Sub(intent.CreatedAt)
	e2e := report.CompletedAt.Sub(sig.WSReceivedAt)
	metrics.ExecutionSignalToFillUs.WithLabelValues(sig.Strategy).Observe(float64(signalToFill.Microseconds()))
	metrics.ExecutionE2ELatencyUs.WithLabelValues(sig.Strategy).Observe(float64(e2e.Microseconds()))

	for i, lr := range report.LegResults {
		switch lr.Outcome {
		case domain.LegFilled:
			metrics.ExecutionFillsTotal.WithLabelValues(sig.Strategy, b.exec.Name()).Inc()
		case domain.LegRejected:
			metrics.ExecutionRejectionsTotal.WithLabelValues(sig.Strategy, b.exec.Name()).Inc()
			b.logger.Warn("leg rejected",
				slog.String("signal_id", sig.ID),
				slog.Int("leg", i),
				slog.String("reason", lr.Reason),
			)
		}
	}
}

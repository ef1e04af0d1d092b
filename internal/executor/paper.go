package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/simrat12/prediction-engine/internal/domain"
)

// PaperExecutor simulates execution: every leg fills at its requested price
// and size. Pure compute; no network.
type PaperExecutor struct {
	orderSeq atomic.Uint64
	logger   *slog.Logger
}

// NewPaperExecutor creates a paper executor.
func NewPaperExecutor(logger *slog.Logger) *PaperExecutor {
	return &PaperExecutor{
		logger: logger.With(slog.String("component", "paper_executor")),
	}
}

// Name implements Executor.
func (p *PaperExecutor) Name() string { return "paper" }

// Execute fills all legs immediately.
func (p *PaperExecutor) Execute(_ context.Context, intent domain.ExecutionIntent) (domain.ExecutionReport, error) {
	results := make([]domain.LegFillStatus, len(intent.Legs))
	for i, leg := range intent.Legs {
		orderID := fmt.Sprintf("paper-%d", p.orderSeq.Add(1))
		results[i] = domain.LegFillStatus{
			Outcome:   domain.LegFilled,
			OrderID:   orderID,
			FillPrice: leg.Price,
			FillSize:  leg.Size,
		}
		p.logger.Info("PAPER FILL",
			slog.String("order_id", orderID),
			slog.String("intent_id", intent.ID),
			slog.String("token", leg.TokenID),
			slog.String("side", string(leg.Side)),
			slog.Float64("price", leg.Price),
			slog.Float64("size", leg.Size),
		)
	}
	return domain.ExecutionReport{
		IntentID:    intent.ID,
		LegResults:  results,
		CompletedAt: time.Now(),
	}, nil
}

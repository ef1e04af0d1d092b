package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simrat12/prediction-engine/internal/domain"
	"github.com/simrat12/prediction-engine/internal/platform/kalshi"
	"github.com/simrat12/prediction-engine/internal/platform/polymarket"
)

// PolymarketPlacer places one fill-or-kill leg on the Polymarket CLOB.
type PolymarketPlacer interface {
	PostFOKOrder(ctx context.Context, leg domain.OrderLeg, negRisk bool) (polymarket.APIOrderResult, error)
}

// KalshiPlacer places one fill-or-kill order on Kalshi.
type KalshiPlacer interface {
	PlaceOrder(ctx context.Context, req kalshi.OrderRequest) (kalshi.OrderResponse, error)
}

// LiveExecutor places each leg sequentially as fill-or-kill against the
// venue's trading client. The first non-filled leg halts the intent;
// remaining legs report NotAttempted. It never retries and never panics on
// venue errors.
type LiveExecutor struct {
	polymarket PolymarketPlacer
	kalshi     KalshiPlacer
	logger     *slog.Logger
}

// NewLiveExecutor creates a live executor. Either placer may be nil when
// the venue is disabled; legs for that venue then reject.
func NewLiveExecutor(pm PolymarketPlacer, k KalshiPlacer, logger *slog.Logger) *LiveExecutor {
	return &LiveExecutor{
		polymarket: pm,
		kalshi:     k,
		logger:     logger.With(slog.String("component", "live_executor")),
	}
}

// Name implements Executor.
func (l *LiveExecutor) Name() string { return "live" }

// Execute places legs in order, halting on the first non-fill.
func (l *LiveExecutor) Execute(ctx context.Context, intent domain.ExecutionIntent) (domain.ExecutionReport, error) {
	results := make([]domain.LegFillStatus, len(intent.Legs))
	halted := false

	for i, leg := range intent.Legs {
		if halted {
			results[i] = domain.LegFillStatus{Outcome: domain.LegNotAttempted}
			continue
		}

		res := l.placeLeg(ctx, intent, leg)
		results[i] = res
		if res.Outcome != domain.LegFilled {
			halted = true
		}
	}

	return domain.ExecutionReport{
		IntentID:    intent.ID,
		LegResults:  results,
		CompletedAt: time.Now(),
	}, nil
}

func (l *LiveExecutor) placeLeg(ctx context.Context, intent domain.ExecutionIntent, leg domain.OrderLeg) domain.LegFillStatus {
	switch intent.Venue {
	case domain.VenuePolymarket:
		return l.placePolymarket(ctx, leg, intent.NegRisk)
	case domain.VenueKalshi:
		return l.placeKalshi(ctx, leg)
	}
	return domain.LegFillStatus{
		Outcome: domain.LegRejected,
		Reason:  fmt.Sprintf("unsupported venue %q", intent.Venue),
	}
}

func (l *LiveExecutor) placePolymarket(ctx context.Context, leg domain.OrderLeg, negRisk bool) domain.LegFillStatus {
	if l.polymarket == nil {
		return domain.LegFillStatus{Outcome: domain.LegRejected, Reason: "polymarket trading disabled"}
	}

	res, err := l.polymarket.PostFOKOrder(ctx, leg, negRisk)
	if err != nil {
		return domain.LegFillStatus{Outcome: domain.LegRejected, Reason: err.Error()}
	}
	if !res.Success {
		reason := res.ErrorMsg
		if reason == "" {
			reason = "order not filled: " + res.Status
		}
		return domain.LegFillStatus{Outcome: domain.LegRejected, OrderID: res.OrderID, Reason: reason}
	}
	return domain.LegFillStatus{
		Outcome:   domain.LegFilled,
		OrderID:   res.OrderID,
		FillPrice: leg.Price,
		FillSize:  leg.Size,
	}
}

// placeKalshi maps an outcome-token leg onto Kalshi's yes/no order shape.
// Token ids carry a -YES/-NO suffix added at discovery; prices convert to
// cents.
func (l *LiveExecutor) placeKalshi(ctx context.Context, leg domain.OrderLeg) domain.LegFillStatus {
	if l.kalshi == nil {
		return domain.LegFillStatus{Outcome: domain.LegRejected, Reason: "kalshi trading disabled"}
	}

	ticker, side, ok := splitKalshiToken(leg.TokenID)
	if !ok {
		return domain.LegFillStatus{Outcome: domain.LegRejected, Reason: "malformed kalshi token id"}
	}

	req := kalshi.OrderRequest{
		Ticker:      ticker,
		Action:      string(leg.Side),
		Side:        side,
		Count:       int64(math.Round(leg.Size)),
		Type:        "limit",
		TimeInForce: "fill_or_kill",
		ClientID:    uuid.New().String(),
	}
	cents := int64(math.Round(leg.Price * 100))
	if side == "yes" {
		req.YesPrice = cents
	} else {
		req.NoPrice = cents
	}

	res, err := l.kalshi.PlaceOrder(ctx, req)
	if err != nil {
		return domain.LegFillStatus{Outcome: domain.LegRejected, Reason: err.Error()}
	}
	if res.Order.Status != "executed" {
		return domain.LegFillStatus{
			Outcome: domain.LegRejected,
			OrderID: res.Order.OrderID,
			Reason:  "order not filled: " + res.Order.Status,
		}
	}
	return domain.LegFillStatus{
		Outcome:   domain.LegFilled,
		OrderID:   res.Order.OrderID,
		FillPrice: leg.Price,
		FillSize:  leg.Size,
	}
}

func splitKalshiToken(tokenID string) (ticker, side string, ok bool) {
	switch {
	case strings.HasSuffix(tokenID, "-YES"):
		return strings.TrimSuffix(tokenID, "-YES"), "yes", true
	case strings.HasSuffix(tokenID, "-NO"):
		return strings.TrimSuffix(tokenID, "-NO"), "no", true
	}
	return "", "", false
}

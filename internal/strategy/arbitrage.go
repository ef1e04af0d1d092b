package strategy

import (
	"time"

	"github.com/google/uuid"

	"github.com/simrat12/prediction-engine/internal/domain"
)

// Arbitrage detects cross-outcome mispricing within a single binary market.
//
// In a binary market the YES and NO prices sum to ~1.0 at equilibrium. When
// the bids sum above 1, selling both outcomes locks in the excess; when the
// asks sum below 1, buying both locks in the shortfall. Both legs price at
// top-of-book and share one fixed size.
type Arbitrage struct {
	minEdge float64
	size    float64
}

// NewArbitrage creates the strategy. minEdge is the minimum edge beyond the
// 1.0 equilibrium required to fire (0 fires on any positive edge); size is
// the per-leg order size.
func NewArbitrage(minEdge, size float64) *Arbitrage {
	return &Arbitrage{minEdge: minEdge, size: size}
}

// Name implements Strategy.
func (a *Arbitrage) Name() string { return "cross_outcome_arb" }

// Evaluate reads both outcome tokens of the triggering market and emits a
// two-leg signal when either arbitrage condition holds. When both hold, the
// larger edge wins; ties prefer the sell side.
func (a *Arbitrage) Evaluate(ec domain.EvalContext) (domain.TradeSignal, bool) {
	info, ok := ec.Info()
	if !ok {
		return domain.TradeSignal{}, false
	}

	yes, ok := ec.States.Get(domain.MarketKey{Venue: ec.Key.Venue, TokenID: info.YesTokenID})
	if !ok || !yes.HasQuote() {
		return domain.TradeSignal{}, false
	}
	no, ok := ec.States.Get(domain.MarketKey{Venue: ec.Key.Venue, TokenID: info.NoTokenID})
	if !ok || !no.HasQuote() {
		return domain.TradeSignal{}, false
	}

	sellEdge := *yes.BestBid + *no.BestBid - 1.0
	buyEdge := 1.0 - (*yes.BestAsk + *no.BestAsk)

	sellFires := sellEdge > a.minEdge
	buyFires := buyEdge > a.minEdge
	if !sellFires && !buyFires {
		return domain.TradeSignal{}, false
	}

	var legs []domain.SignalLeg
	var edge float64
	if sellFires && (!buyFires || sellEdge >= buyEdge) {
		edge = sellEdge
		legs = []domain.SignalLeg{
			{TokenID: info.YesTokenID, Side: domain.OrderSideSell, Price: *yes.BestBid, Size: a.size},
			{TokenID: info.NoTokenID, Side: domain.OrderSideSell, Price: *no.BestBid, Size: a.size},
		}
	} else {
		edge = buyEdge
		legs = []domain.SignalLeg{
			{TokenID: info.YesTokenID, Side: domain.OrderSideBuy, Price: *yes.BestAsk, Size: a.size},
			{TokenID: info.NoTokenID, Side: domain.OrderSideBuy, Price: *no.BestAsk, Size: a.size},
		}
	}

	return domain.TradeSignal{
		ID:           uuid.New().String(),
		Strategy:     a.Name(),
		Venue:        ec.Key.Venue,
		MarketID:     info.MarketID,
		Legs:         legs,
		Edge:         edge,
		GeneratedAt:  time.Now(),
		WSReceivedAt: ec.WSReceivedAt,
	}, true
}

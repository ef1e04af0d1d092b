// Package strategy contains the notification-driven strategy engine and the
// strategies it evaluates.
package strategy

import "github.com/simrat12/prediction-engine/internal/domain"

// Strategy is the contract for trading strategies. Evaluate runs on every
// market tick; it must be pure compute — reads come from the EvalContext,
// never from the network. The boolean is false when no signal fires.
type Strategy interface {
	Name() string
	Evaluate(ec domain.EvalContext) (domain.TradeSignal, bool)
}

package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/simrat12/prediction-engine/internal/cache"
	"github.com/simrat12/prediction-engine/internal/domain"
	"github.com/simrat12/prediction-engine/internal/executor"
	"github.com/simrat12/prediction-engine/internal/router"
	"github.com/simrat12/prediction-engine/internal/strategy"
)

func f(v float64) *float64 { return &v }

// testPipeline wires cache, router, strategy engine, and bridge with real
// channels at small capacities, a scripted event source standing in for the
// adapter, and a recording executor standing in for the venue.
type testPipeline struct {
	events chan domain.MarketEvent
	exec   *scriptedExecutor
	done   chan struct{}
}

type scriptedExecutor struct {
	intents chan domain.ExecutionIntent
}

func (s *scriptedExecutor) Name() string { return "scripted" }

func (s *scriptedExecutor) Execute(_ context.Context, intent domain.ExecutionIntent) (domain.ExecutionReport, error) {
	results := make([]domain.LegFillStatus, len(intent.Legs))
	for i, leg := range intent.Legs {
		results[i] = domain.LegFillStatus{Outcome: domain.LegFilled, FillPrice: leg.Price, FillSize: leg.Size}
	}
	s.intents <- intent
	return domain.ExecutionReport{LegResults: results, CompletedAt: time.Now()}, nil
}

func startPipeline(t *testing.T) *testPipeline {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	c := cache.New(8)
	events := make(chan domain.MarketEvent, 64)
	notify := make(chan domain.Notification, 64)
	signals := make(chan domain.TradeSignal, 8)

	markets := domain.MarketMap{
		"M1": {MarketID: "M1", YesTokenID: "TY", NoTokenID: "TN"},
	}
	tokens := domain.TokenToMarket{"TY": "M1", "TN": "M1"}

	rt := router.New(events, notify, c, 64, 5*time.Millisecond, logger)

	registry := strategy.NewRegistry()
	registry.Register(strategy.NewArbitrage(0, 10))
	engine := strategy.NewEngine(notify, signals, c, markets, tokens, registry, logger)

	exec := &scriptedExecutor{intents: make(chan domain.ExecutionIntent, 8)}
	bridge := executor.NewBridge(signals, exec, markets, tokens, time.Minute, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bridge.Run(context.Background())
	}()
	go func() { _ = engine.Run(context.Background()) }()
	go func() { _ = rt.Run(context.Background()) }()

	return &testPipeline{events: events, exec: exec, done: done}
}

func (p *testPipeline) waitIntent(t *testing.T) domain.ExecutionIntent {
	t.Helper()
	select {
	case intent := <-p.exec.intents:
		return intent
	case <-time.After(2 * time.Second):
		t.Fatal("no execution intent produced")
		return domain.ExecutionIntent{}
	}
}

func (p *testPipeline) finish(t *testing.T) {
	t.Helper()
	close(p.events)
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not drain after event channel close")
	}
}

// Two snapshots whose bids sum above 1.0 must flow wire-to-executor as one
// sell intent with both outcome legs.
func TestPipelineSellArbitrageEndToEnd(t *testing.T) {
	p := startPipeline(t)
	now := time.Now()

	p.events <- domain.MarketEvent{
		Venue: domain.VenuePolymarket, TokenID: "TY", MarketID: "M1",
		Type: domain.EventSnapshot, Bid: f(0.60), Ask: f(0.62), ReceivedAt: now,
	}
	p.events <- domain.MarketEvent{
		Venue: domain.VenuePolymarket, TokenID: "TN", MarketID: "M1",
		Type: domain.EventSnapshot, Bid: f(0.45), Ask: f(0.47), ReceivedAt: now.Add(time.Millisecond),
	}

	intent := p.waitIntent(t)
	if len(intent.Legs) != 2 {
		t.Fatalf("intent has %d legs, want 2", len(intent.Legs))
	}
	if intent.Legs[0].TokenID != "TY" || intent.Legs[0].Side != domain.OrderSideSell || intent.Legs[0].Price != 0.60 {
		t.Errorf("yes leg = %+v", intent.Legs[0])
	}
	if intent.Legs[1].TokenID != "TN" || intent.Legs[1].Side != domain.OrderSideSell || intent.Legs[1].Price != 0.45 {
		t.Errorf("no leg = %+v", intent.Legs[1])
	}

	p.finish(t)
}

// After a simulated reconnect the adapter re-seeds snapshots; the pipeline
// must fire again off the fresh seed values.
func TestPipelineReseedAfterReconnect(t *testing.T) {
	p := startPipeline(t)
	now := time.Now()

	// Initial state: no edge.
	p.events <- domain.MarketEvent{
		Venue: domain.VenuePolymarket, TokenID: "TY", MarketID: "M1",
		Type: domain.EventSnapshot, Bid: f(0.50), Ask: f(0.52), ReceivedAt: now,
	}
	p.events <- domain.MarketEvent{
		Venue: domain.VenuePolymarket, TokenID: "TN", MarketID: "M1",
		Type: domain.EventSnapshot, Bid: f(0.46), Ask: f(0.48), ReceivedAt: now,
	}
	// One price change before the "disconnect".
	p.events <- domain.MarketEvent{
		Venue: domain.VenuePolymarket, TokenID: "TY", MarketID: "M1",
		Type: domain.EventPriceChange, Bid: f(0.49), ReceivedAt: now.Add(time.Millisecond),
	}

	// Reconnect: the re-seed round carries a moved market with an edge.
	reseedAt := now.Add(50 * time.Millisecond)
	p.events <- domain.MarketEvent{
		Venue: domain.VenuePolymarket, TokenID: "TY", MarketID: "M1",
		Type: domain.EventSnapshot, Bid: f(0.60), Ask: f(0.62), ReceivedAt: reseedAt,
	}
	p.events <- domain.MarketEvent{
		Venue: domain.VenuePolymarket, TokenID: "TN", MarketID: "M1",
		Type: domain.EventSnapshot, Bid: f(0.45), Ask: f(0.47), ReceivedAt: reseedAt,
	}

	intent := p.waitIntent(t)
	if intent.Legs[0].Price != 0.60 {
		t.Errorf("intent priced off stale state: %+v", intent.Legs[0])
	}

	p.finish(t)
}

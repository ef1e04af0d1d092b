package adapter

import (
	"log/slog"
	"testing"
	"time"

	"github.com/simrat12/prediction-engine/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func pmTestAdapter() *PolymarketAdapter {
	return &PolymarketAdapter{
		logger:        testLogger(),
		tokenToMarket: domain.TokenToMarket{"T1": "M1", "T2": "M1"},
		markets: domain.MarketMap{
			"M1": {MarketID: "M1", YesTokenID: "T1", NoTokenID: "T2"},
		},
	}
}

func TestPolymarketNormalizeBook(t *testing.T) {
	a := pmTestAdapter()
	now := time.Now()

	raw := []byte(`{
		"event_type": "book",
		"asset_id": "T1",
		"market": "0xabc",
		"bids": [{"price":"0.48","size":"100"},{"price":"0.60","size":"30"}],
		"asks": [{"price":"0.70","size":"55"},{"price":"0.62","size":"10"}],
		"timestamp": "1700000000000"
	}`)

	evs := a.normalize(raw, now)
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	ev := evs[0]
	if ev.Type != domain.EventSnapshot {
		t.Errorf("type = %v, want snapshot", ev.Type)
	}
	if ev.Venue != domain.VenuePolymarket || ev.TokenID != "T1" || ev.MarketID != "M1" {
		t.Errorf("routing = %s/%s/%s", ev.Venue, ev.TokenID, ev.MarketID)
	}
	// Best levels sit at the end of each side.
	if ev.Bid == nil || *ev.Bid != 0.60 {
		t.Errorf("bid = %v, want 0.60", ev.Bid)
	}
	if ev.Ask == nil || *ev.Ask != 0.62 {
		t.Errorf("ask = %v, want 0.62", ev.Ask)
	}
	if !ev.ReceivedAt.Equal(now) {
		t.Error("receipt stamp altered during normalization")
	}
}

func TestPolymarketNormalizePriceChange(t *testing.T) {
	a := pmTestAdapter()
	now := time.Now()

	raw := []byte(`{
		"event_type": "price_change",
		"asset_id": "T1",
		"market": "0xabc",
		"changes": [
			{"asset_id":"T1","price":"0.51","size":"40","side":"BUY"},
			{"asset_id":"T2","price":"0.47","size":"12","side":"SELL"},
			{"asset_id":"T1","price":"0.50","size":"5","side":"???"}
		],
		"timestamp": "1700000000000"
	}`)

	evs := a.normalize(raw, now)
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2 (unknown side skipped)", len(evs))
	}

	if evs[0].TokenID != "T1" || evs[0].Bid == nil || *evs[0].Bid != 0.51 || evs[0].Ask != nil {
		t.Errorf("buy change = %+v", evs[0])
	}
	if evs[1].TokenID != "T2" || evs[1].Ask == nil || *evs[1].Ask != 0.47 || evs[1].Bid != nil {
		t.Errorf("sell change = %+v", evs[1])
	}
	for _, ev := range evs {
		if ev.Type != domain.EventPriceChange {
			t.Errorf("type = %v, want price_change", ev.Type)
		}
		if !ev.ReceivedAt.Equal(now) {
			t.Error("receipt stamp altered")
		}
	}
}

func TestPolymarketNormalizeTradeAndHeartbeat(t *testing.T) {
	a := pmTestAdapter()
	now := time.Now()

	trade := a.normalize([]byte(`{
		"event_type": "last_trade_price",
		"asset_id": "T1",
		"price": "0.55",
		"size": "20",
		"side": "BUY"
	}`), now)
	if len(trade) != 1 || trade[0].Type != domain.EventTrade {
		t.Fatalf("trade events = %+v", trade)
	}
	if trade[0].Price != 0.55 || trade[0].Size != 20 {
		t.Errorf("trade = %+v", trade[0])
	}

	hb := a.normalize([]byte(`{"event_type":"subscribed"}`), now)
	if len(hb) != 1 || hb[0].Type != domain.EventHeartbeat {
		t.Fatalf("heartbeat events = %+v", hb)
	}
}

func TestPolymarketNormalizeBatchedFrames(t *testing.T) {
	a := pmTestAdapter()
	now := time.Now()

	raw := []byte(`[
		{"event_type":"book","asset_id":"T1","bids":[{"price":"0.40","size":"1"}],"asks":[]},
		{"event_type":"book","asset_id":"T2","bids":[],"asks":[{"price":"0.55","size":"2"}]}
	]`)

	evs := a.normalize(raw, now)
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if evs[0].TokenID != "T1" || evs[1].TokenID != "T2" {
		t.Errorf("tokens = %s, %s", evs[0].TokenID, evs[1].TokenID)
	}
	if evs[1].Bid != nil || evs[1].Ask == nil {
		t.Errorf("one-sided book mapped wrong: %+v", evs[1])
	}
}

func TestPolymarketNormalizeGarbage(t *testing.T) {
	a := pmTestAdapter()
	tests := []string{
		`{not json`,
		`[{"event_type":"book","bids":"oops"}]`,
	}
	for _, raw := range tests {
		if evs := a.normalize([]byte(raw), time.Now()); len(evs) != 0 {
			t.Errorf("garbage %q produced events: %+v", raw, evs)
		}
	}
}

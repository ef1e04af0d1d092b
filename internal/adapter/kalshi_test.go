package adapter

import (
	"testing"
	"time"

	"github.com/simrat12/prediction-engine/internal/domain"
)

func kalshiTestAdapter() *KalshiAdapter {
	return &KalshiAdapter{
		logger: testLogger(),
		markets: domain.MarketMap{
			"FED-24DEC": {MarketID: "FED-24DEC", YesTokenID: "FED-24DEC-YES", NoTokenID: "FED-24DEC-NO"},
		},
		tokenToMarket: domain.TokenToMarket{
			"FED-24DEC-YES": "FED-24DEC",
			"FED-24DEC-NO":  "FED-24DEC",
		},
	}
}

func TestKalshiOutcomeEventsImpliedNoSide(t *testing.T) {
	a := kalshiTestAdapter()
	now := time.Now()

	evs := a.outcomeEvents("FED-24DEC", domain.EventPriceChange,
		domain.Float64(0.42), domain.Float64(0.44), now)
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}

	yes := evs[0]
	if yes.TokenID != "FED-24DEC-YES" || *yes.Bid != 0.42 || *yes.Ask != 0.44 {
		t.Errorf("yes event = %+v", yes)
	}

	// NO prices are the complement: bid = 1 - yes_ask, ask = 1 - yes_bid.
	no := evs[1]
	if no.TokenID != "FED-24DEC-NO" {
		t.Fatalf("no token = %s", no.TokenID)
	}
	if diff := *no.Bid - 0.56; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("no bid = %v, want 0.56", *no.Bid)
	}
	if diff := *no.Ask - 0.58; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("no ask = %v, want 0.58", *no.Ask)
	}
}

func TestKalshiOutcomeEventsOneSided(t *testing.T) {
	a := kalshiTestAdapter()
	evs := a.outcomeEvents("FED-24DEC", domain.EventPriceChange, domain.Float64(0.42), nil, time.Now())
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if evs[0].Ask != nil {
		t.Error("yes ask should stay unset")
	}
	if evs[1].Bid != nil {
		t.Error("no bid should stay unset without a yes ask")
	}
	if evs[1].Ask == nil {
		t.Error("no ask should derive from the yes bid")
	}
}

func TestKalshiOutcomeEventsEmptyBook(t *testing.T) {
	a := kalshiTestAdapter()
	if evs := a.outcomeEvents("FED-24DEC", domain.EventSnapshot, nil, nil, time.Now()); evs != nil {
		t.Errorf("empty book produced events: %+v", evs)
	}
}

func TestKalshiNormalizeTicker(t *testing.T) {
	a := kalshiTestAdapter()
	now := time.Now()

	raw := []byte(`{
		"type": "ticker",
		"sid": 7,
		"msg": {
			"market_ticker": "FED-24DEC",
			"yes_bid": 42,
			"yes_ask": 44,
			"volume": 1500,
			"ts": 1700000000
		}
	}`)

	evs := a.normalize(raw, now)
	if len(evs) != 2 {
		t.Fatalf("got %d events, want yes+no", len(evs))
	}
	if evs[0].Type != domain.EventPriceChange {
		t.Errorf("type = %v", evs[0].Type)
	}
	if *evs[0].Bid != 0.42 || *evs[0].Ask != 0.44 {
		t.Errorf("yes prices = %v/%v", *evs[0].Bid, *evs[0].Ask)
	}
	for _, ev := range evs {
		if ev.Volume == nil || *ev.Volume != 1500 {
			t.Errorf("volume = %v, want 1500", ev.Volume)
		}
		if !ev.ReceivedAt.Equal(now) {
			t.Error("receipt stamp altered")
		}
	}
}

func TestKalshiNormalizeTradeAndHeartbeat(t *testing.T) {
	a := kalshiTestAdapter()
	now := time.Now()

	trade := a.normalize([]byte(`{
		"type": "trade",
		"msg": {"market_ticker":"FED-24DEC","yes_price":43,"count":5,"taker_side":"yes","ts":1700000000}
	}`), now)
	if len(trade) != 1 || trade[0].Type != domain.EventTrade {
		t.Fatalf("trade events = %+v", trade)
	}
	if trade[0].Price != 0.43 || trade[0].Size != 5 {
		t.Errorf("trade = %+v", trade[0])
	}

	hb := a.normalize([]byte(`{"type":"subscribed","sid":1}`), now)
	if len(hb) != 1 || hb[0].Type != domain.EventHeartbeat {
		t.Fatalf("heartbeat events = %+v", hb)
	}
}

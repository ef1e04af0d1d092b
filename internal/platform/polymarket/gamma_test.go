package polymarket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func gammaFixture(t *testing.T, pages [][]APIMarket) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			http.NotFound(w, r)
			return
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		page := offset / gammaPageSize
		var markets []APIMarket
		if page < len(pages) {
			markets = pages[page]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(markets)
	}))
}

func gammaMarket(id string, volume, liquidity float64) APIMarket {
	return APIMarket{
		ID:              id,
		Question:        "Will it settle yes?",
		Active:          true,
		EnableOrderBook: true,
		Volume:          flexFloat(volume),
		Liquidity:       flexFloat(liquidity),
		ClobTokenIDs:    `["` + id + `-Y","` + id + `-N"]`,
	}
}

func TestListTradableMarketsFilters(t *testing.T) {
	closed := gammaMarket("closed", 50000, 5000)
	closed.Closed = true
	archived := gammaMarket("archived", 50000, 5000)
	archived.Archived = true
	noBook := gammaMarket("nobook", 50000, 5000)
	noBook.EnableOrderBook = false
	lowVolume := gammaMarket("lowvol", 100, 5000)
	lowLiquidity := gammaMarket("lowliq", 50000, 10)
	badTokens := gammaMarket("badtok", 50000, 5000)
	badTokens.ClobTokenIDs = `["only-one"]`

	srv := gammaFixture(t, [][]APIMarket{{
		gammaMarket("good-1", 50000, 5000),
		closed, archived, noBook, lowVolume, lowLiquidity, badTokens,
		gammaMarket("good-2", 20000, 2000),
	}})
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	got, err := g.ListTradableMarkets(context.Background(), DiscoveryFilter{
		MinVolume:    10000,
		MinLiquidity: 1000,
		MaxMarkets:   50,
	})
	if err != nil {
		t.Fatalf("list markets: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d markets, want 2: %+v", len(got), got)
	}
	if got[0].ID != "good-1" || got[1].ID != "good-2" {
		t.Errorf("ids = %s, %s", got[0].ID, got[1].ID)
	}
}

func TestListTradableMarketsHonorsMax(t *testing.T) {
	var page []APIMarket
	for i := 0; i < gammaPageSize; i++ {
		page = append(page, gammaMarket("m-"+strconv.Itoa(i), 50000, 5000))
	}
	srv := gammaFixture(t, [][]APIMarket{page, page})
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	got, err := g.ListTradableMarkets(context.Background(), DiscoveryFilter{MaxMarkets: 7})
	if err != nil {
		t.Fatalf("list markets: %v", err)
	}
	if len(got) != 7 {
		t.Errorf("got %d markets, want 7", len(got))
	}
}

func TestListTradableMarketsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	if _, err := g.ListTradableMarkets(context.Background(), DiscoveryFilter{MaxMarkets: 5}); err == nil {
		t.Error("expected error on 500")
	}
}

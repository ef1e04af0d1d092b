package polymarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/simrat12/prediction-engine/internal/domain"
)

func TestOrderAmounts(t *testing.T) {
	tests := []struct {
		name      string
		leg       domain.OrderLeg
		wantMaker string
		wantTaker string
	}{
		{
			name:      "buy spends collateral for tokens",
			leg:       domain.OrderLeg{Side: domain.OrderSideBuy, Price: 0.42, Size: 10},
			wantMaker: "4200000",
			wantTaker: "10000000",
		},
		{
			name:      "sell spends tokens for collateral",
			leg:       domain.OrderLeg{Side: domain.OrderSideSell, Price: 0.60, Size: 10},
			wantMaker: "10000000",
			wantTaker: "6000000",
		},
		{
			name:      "fractional price stays exact",
			leg:       domain.OrderLeg{Side: domain.OrderSideBuy, Price: 0.07, Size: 3},
			wantMaker: "210000",
			wantTaker: "3000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maker, taker := orderAmounts(tt.leg)
			if maker != tt.wantMaker || taker != tt.wantTaker {
				t.Errorf("amounts = %s/%s, want %s/%s", maker, taker, tt.wantMaker, tt.wantTaker)
			}
		})
	}
}

func TestGetBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book" || r.URL.Query().Get("token_id") != "T1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"asset_id": "T1",
			"bids": [{"price":"0.40","size":"10"},{"price":"0.48","size":"5"}],
			"asks": [{"price":"0.60","size":"10"},{"price":"0.52","size":"5"}]
		}`))
	}))
	defer srv.Close()

	c := NewClobClient(srv.URL, nil)
	book, err := c.GetBook(context.Background(), "T1")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	bid, ask := book.BestLevels()
	if bid == nil || *bid != 0.48 || ask == nil || *ask != 0.52 {
		t.Errorf("best levels = %v/%v", bid, ask)
	}
}

func TestPostFOKOrderWithoutSigner(t *testing.T) {
	c := NewClobClient("http://localhost:0", nil)
	_, err := c.PostFOKOrder(context.Background(), domain.OrderLeg{
		TokenID: "1", Side: domain.OrderSideBuy, Price: 0.5, Size: 1,
	}, false)
	if !errors.Is(err, domain.ErrNoPrivateKey) {
		t.Errorf("err = %v, want ErrNoPrivateKey", err)
	}
}

package router

import (
	"context"
	"testing"
	"time"

	"github.com/simrat12/prediction-engine/internal/cache"
	"github.com/simrat12/prediction-engine/internal/domain"
)

func TestRouterSpawnsLanesLazilyAndDrainsOnClose(t *testing.T) {
	c := cache.New(4)
	events := make(chan domain.MarketEvent, 64)
	notify := make(chan domain.Notification, 64)
	r := New(events, notify, c, 16, 5*time.Millisecond, testLogger())

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	now := time.Now()
	events <- domain.MarketEvent{
		Venue: domain.VenuePolymarket, TokenID: "P1",
		Type: domain.EventSnapshot, Bid: f(0.4), Ask: f(0.6), ReceivedAt: now,
	}
	events <- domain.MarketEvent{
		Venue: domain.VenueKalshi, TokenID: "K1",
		Type: domain.EventSnapshot, Bid: f(0.3), Ask: f(0.7), ReceivedAt: now,
	}
	close(events)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("router returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("router did not stop after channel close")
	}

	if _, ok := c.Get(domain.MarketKey{Venue: domain.VenuePolymarket, TokenID: "P1"}); !ok {
		t.Error("polymarket event not cached")
	}
	if _, ok := c.Get(domain.MarketKey{Venue: domain.VenueKalshi, TokenID: "K1"}); !ok {
		t.Error("kalshi event not cached")
	}

	// Router closes the notification channel after workers drain.
	deadline := time.After(time.Second)
	count := 0
	for {
		select {
		case _, ok := <-notify:
			if !ok {
				if count != 2 {
					t.Errorf("got %d notifications, want 2", count)
				}
				return
			}
			count++
		case <-deadline:
			t.Fatal("notification channel never closed")
		}
	}
}

// 1000 in-order price changes for one key must be cached in order with the
// final value winning and LastUpdate never moving backwards.
func TestRouterPerKeyOrdering(t *testing.T) {
	c := cache.New(16)
	events := make(chan domain.MarketEvent, 1024)
	notify := make(chan domain.Notification, 512)
	r := New(events, notify, c, 1024, 5*time.Millisecond, testLogger())

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	// Discard notifications so drops do not obscure the cache assertion.
	go func() {
		for range notify {
		}
	}()

	const n = 1000
	base := time.Now()
	for i := 0; i < n; i++ {
		events <- domain.MarketEvent{
			Venue: domain.VenuePolymarket, TokenID: "T1",
			Type:       domain.EventPriceChange,
			Bid:        f(float64(i) / n),
			ReceivedAt: base.Add(time.Duration(i) * time.Microsecond),
		}
	}
	close(events)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("router did not drain")
	}

	state, ok := c.Get(domain.MarketKey{Venue: domain.VenuePolymarket, TokenID: "T1"})
	if !ok {
		t.Fatal("state missing")
	}
	if *state.BestBid != float64(n-1)/n {
		t.Errorf("final bid = %v, want %v", *state.BestBid, float64(n-1)/n)
	}
	if !state.LastUpdate.Equal(base.Add((n - 1) * time.Microsecond)) {
		t.Errorf("final last update = %v", state.LastUpdate)
	}
}

// A lane that stays full past the bounded wait drops the event instead of
// blocking the router.
func TestRouterBoundedWaitThenDrop(t *testing.T) {
	c := cache.New(4)
	events := make(chan domain.MarketEvent)
	notify := make(chan domain.Notification, 4)
	r := New(events, notify, c, 1, 5*time.Millisecond, testLogger())

	// Install a full lane with no worker attached.
	lane := make(chan domain.MarketEvent, 1)
	lane <- domain.MarketEvent{}
	r.lanes[domain.VenuePolymarket] = lane

	start := time.Now()
	doneCh := make(chan struct{})
	go func() {
		r.dispatch(context.Background(), domain.MarketEvent{
			Venue: domain.VenuePolymarket, TokenID: "T1",
			Type: domain.EventSnapshot, Bid: f(0.5), ReceivedAt: time.Now(),
		})
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a full lane")
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("dispatch returned in %v, before the bounded wait", elapsed)
	}
	if len(lane) != 1 {
		t.Errorf("lane length = %d, dropped event should not enqueue", len(lane))
	}
}

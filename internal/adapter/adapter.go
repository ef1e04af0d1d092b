// Package adapter contains the venue adapters. An adapter discovers eligible
// markets, builds the static lookup tables, seeds initial top-of-book state,
// and then streams the venue's feed as normalized MarketEvents. On stream
// failure it reconnects with exponential backoff and re-seeds so downstream
// state converges.
package adapter

import (
	"context"
	"time"

	"github.com/simrat12/prediction-engine/internal/domain"
)

const (
	// Reconnect backoff: 1s, 2s, 4s, ... capped at 60s, at most 10
	// consecutive failed attempts before the adapter terminates.
	backoffBase        = 1 * time.Second
	backoffCap         = 60 * time.Second
	maxReconnectTries  = 10
	handshakeTimeout   = 15 * time.Second
	defaultSeedWorkers = 10
)

// Adapter is one venue's feed. Tables are valid after Init and immutable;
// Run blocks until the context is cancelled or reconnects are exhausted.
type Adapter interface {
	Venue() domain.Venue
	Tables() (domain.MarketMap, domain.TokenToMarket)
	Run(ctx context.Context) error
}

// backoffDelay returns the delay before reconnect attempt n (1-based).
func backoffDelay(attempt int) time.Duration {
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// emit delivers an event to the router with cooperative backpressure: the
// adapter→router hop blocks (briefly, in practice) rather than dropping, so
// pressure propagates upstream to the network read.
func emit(ctx context.Context, events chan<- domain.MarketEvent, ev domain.MarketEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case events <- ev:
		return nil
	}
}

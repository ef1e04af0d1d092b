// Package bus provides the optional Redis publisher that mirrors emitted
// trade signals to external observers.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simrat12/prediction-engine/internal/domain"
)

// Publisher publishes trade signals on a Redis pub/sub channel.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(ctx context.Context, addr, password string, db int, channel string) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("bus: redis ping: %w", err)
	}

	return &Publisher{client: client, channel: channel}, nil
}

// signalEvent is the JSON shape published for each signal.
type signalEvent struct {
	ID        string  `json:"id"`
	Strategy  string  `json:"strategy"`
	Venue     string  `json:"venue"`
	MarketID  string  `json:"market_id"`
	Edge      float64 `json:"edge"`
	Legs      []leg   `json:"legs"`
	Generated string  `json:"generated_at"`
}

type leg struct {
	TokenID string  `json:"token_id"`
	Side    string  `json:"side"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
}

// PublishSignal serializes and publishes one signal. Fire-and-forget from
// the bridge's perspective; errors are reported, not retried.
func (p *Publisher) PublishSignal(ctx context.Context, sig domain.TradeSignal) error {
	ev := signalEvent{
		ID:        sig.ID,
		Strategy:  sig.Strategy,
		Venue:     string(sig.Venue),
		MarketID:  sig.MarketID,
		Edge:      sig.Edge,
		Generated: sig.GeneratedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, l := range sig.Legs {
		ev.Legs = append(ev.Legs, leg{
			TokenID: l.TokenID,
			Side:    string(l.Side),
			Price:   l.Price,
			Size:    l.Size,
		})
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("bus: marshal signal: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("bus: publish signal: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}

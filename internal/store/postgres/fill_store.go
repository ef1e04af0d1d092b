// Package postgres provides the optional fill journal: an audit trail of
// execution reports. Market state itself is never persisted.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simrat12/prediction-engine/internal/domain"
)

// FillStore writes one row per leg result of each execution report,
// including rejected and not-attempted legs.
type FillStore struct {
	pool *pgxpool.Pool
}

// NewFillStore connects a pool and ensures the journal table exists.
func NewFillStore(ctx context.Context, dsn string, maxConns int) (*FillStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &FillStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *FillStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS execution_fills (
			id           BIGSERIAL PRIMARY KEY,
			intent_id    TEXT        NOT NULL,
			signal_id    TEXT        NOT NULL,
			strategy     TEXT        NOT NULL,
			venue        TEXT        NOT NULL,
			market_id    TEXT        NOT NULL,
			leg_index    INT         NOT NULL,
			token_id     TEXT        NOT NULL,
			side         TEXT        NOT NULL,
			outcome      TEXT        NOT NULL,
			order_id     TEXT,
			req_price    DOUBLE PRECISION NOT NULL,
			req_size     DOUBLE PRECISION NOT NULL,
			fill_price   DOUBLE PRECISION,
			fill_size    DOUBLE PRECISION,
			reason       TEXT,
			edge         DOUBLE PRECISION NOT NULL,
			legs_json    JSONB,
			completed_at TIMESTAMPTZ NOT NULL,
			recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("postgres: migrate execution_fills: %w", err)
	}
	return nil
}

// RecordExecution writes one row per leg of the report.
func (s *FillStore) RecordExecution(
	ctx context.Context,
	sig domain.TradeSignal,
	intent domain.ExecutionIntent,
	report domain.ExecutionReport,
) error {
	legsJSON, err := json.Marshal(intent.Legs)
	if err != nil {
		return fmt.Errorf("postgres: marshal legs: %w", err)
	}

	for i, lr := range report.LegResults {
		var leg domain.OrderLeg
		if i < len(intent.Legs) {
			leg = intent.Legs[i]
		}
		var fillPrice, fillSize *float64
		if lr.Outcome == domain.LegFilled {
			fillPrice = &lr.FillPrice
			fillSize = &lr.FillSize
		}

		_, err := s.pool.Exec(ctx, `
			INSERT INTO execution_fills (
				intent_id, signal_id, strategy, venue, market_id,
				leg_index, token_id, side, outcome, order_id,
				req_price, req_size, fill_price, fill_size, reason,
				edge, legs_json, completed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
			intent.ID, sig.ID, sig.Strategy, string(sig.Venue), intent.MarketID,
			i, leg.TokenID, string(leg.Side), string(lr.Outcome), nullIfEmpty(lr.OrderID),
			leg.Price, leg.Size, fillPrice, fillSize, nullIfEmpty(lr.Reason),
			sig.Edge, legsJSON, report.CompletedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("postgres: insert fill: %w", err)
		}
	}
	return nil
}

// RecentFills returns the latest rows for diagnostics.
func (s *FillStore) RecentFills(ctx context.Context, limit int) ([]FillRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT intent_id, signal_id, strategy, venue, market_id,
		       leg_index, token_id, side, outcome, completed_at
		FROM execution_fills
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query fills: %w", err)
	}
	defer rows.Close()

	var out []FillRow
	for rows.Next() {
		var r FillRow
		if err := rows.Scan(
			&r.IntentID, &r.SignalID, &r.Strategy, &r.Venue, &r.MarketID,
			&r.LegIndex, &r.TokenID, &r.Side, &r.Outcome, &r.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan fill: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FillRow is one journal row.
type FillRow struct {
	IntentID    string
	SignalID    string
	Strategy    string
	Venue       string
	MarketID    string
	LegIndex    int
	TokenID     string
	Side        string
	Outcome     string
	CompletedAt time.Time
}

// Close releases the pool.
func (s *FillStore) Close() {
	s.pool.Close()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/simrat12/prediction-engine/internal/config"
	"github.com/simrat12/prediction-engine/internal/domain"
	"github.com/simrat12/prediction-engine/internal/metrics"
	"github.com/simrat12/prediction-engine/internal/platform/polymarket"
)

// Frame decoding sits on the hot path; jsoniter keeps it off the allocator's
// back compared to encoding/json.
var frameJSON = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	pmWriteWait  = 10 * time.Second
	pmPongWait   = 60 * time.Second
	pmPingPeriod = pmPongWait * 9 / 10
)

// PolymarketAdapter streams the Polymarket CLOB market channel.
type PolymarketAdapter struct {
	cfg    config.PolymarketConfig
	gamma  *polymarket.GammaClient
	clob   *polymarket.ClobClient
	events chan<- domain.MarketEvent
	logger *slog.Logger

	markets       domain.MarketMap
	tokenToMarket domain.TokenToMarket
	tokenIDs      []string
	seedWorkers   int
}

// InitPolymarket discovers eligible markets and builds the static tables.
// The returned adapter is ready to Run; the tables never change afterwards.
func InitPolymarket(
	ctx context.Context,
	cfg config.PolymarketConfig,
	seedWorkers int,
	clob *polymarket.ClobClient,
	events chan<- domain.MarketEvent,
	logger *slog.Logger,
) (*PolymarketAdapter, error) {
	a := &PolymarketAdapter{
		cfg:         cfg,
		gamma:       polymarket.NewGammaClient(cfg.GammaHost),
		clob:        clob,
		events:      events,
		logger:      logger.With(slog.String("component", "polymarket_adapter")),
		seedWorkers: seedWorkers,
	}
	if a.seedWorkers <= 0 {
		a.seedWorkers = defaultSeedWorkers
	}

	discovered, err := a.gamma.ListTradableMarkets(ctx, polymarket.DiscoveryFilter{
		MinVolume:    cfg.MinVolume,
		MinLiquidity: cfg.MinLiquidity,
		MaxMarkets:   cfg.MaxMarkets,
	})
	if err != nil {
		return nil, fmt.Errorf("adapter/polymarket: discover markets: %w", err)
	}

	a.markets = make(domain.MarketMap, len(discovered))
	a.tokenToMarket = make(domain.TokenToMarket, 2*len(discovered))
	for i := range discovered {
		m := &discovered[i]
		yes, no, ok := m.TokenIDs()
		if !ok {
			continue
		}
		a.markets[m.ID] = domain.MarketInfo{
			MarketID:   m.ID,
			Question:   m.Question,
			YesTokenID: yes,
			NoTokenID:  no,
			NegRisk:    bool(m.NegRisk),
			Volume:     float64(m.Volume),
		}
		a.tokenToMarket[yes] = m.ID
		a.tokenToMarket[no] = m.ID
		a.tokenIDs = append(a.tokenIDs, yes, no)
	}

	a.logger.Info("markets discovered",
		slog.Int("markets", len(a.markets)),
		slog.Int("tokens", len(a.tokenIDs)),
	)
	return a, nil
}

func (a *PolymarketAdapter) Venue() domain.Venue { return domain.VenuePolymarket }

// Tables returns the static lookup tables built at init.
func (a *PolymarketAdapter) Tables() (domain.MarketMap, domain.TokenToMarket) {
	return a.markets, a.tokenToMarket
}

// Run seeds initial state and streams until ctx is cancelled or the
// reconnect budget is exhausted.
func (a *PolymarketAdapter) Run(ctx context.Context) error {
	if len(a.tokenIDs) == 0 {
		a.logger.Info("no tokens to stream, adapter idle")
		<-ctx.Done()
		return ctx.Err()
	}

	if err := a.seed(ctx); err != nil {
		return fmt.Errorf("adapter/polymarket: seed: %w", err)
	}

	attempt := 0
	for {
		subscribed, err := a.runSession(ctx, attempt > 0)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if subscribed {
			// Only consecutive failures count toward the cap.
			attempt = 0
		}

		attempt++
		metrics.AdapterReconnectsTotal.WithLabelValues(string(domain.VenuePolymarket)).Inc()
		if attempt > maxReconnectTries {
			a.logger.Error("reconnect attempts exhausted", slog.String("error", err.Error()))
			return fmt.Errorf("adapter/polymarket: %w: %v", domain.ErrStreamExhaust, err)
		}

		delay := backoffDelay(attempt)
		a.logger.Warn("stream disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

// seed fetches current top-of-book for every discovered token with bounded
// parallelism and emits one snapshot event per token.
func (a *PolymarketAdapter) seed(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.seedWorkers)

	for _, tokenID := range a.tokenIDs {
		tokenID := tokenID
		g.Go(func() error {
			book, err := a.clob.GetBook(gctx, tokenID)
			if err != nil {
				// A token without a book yet is not fatal; state fills
				// in from the stream.
				a.logger.Warn("seed fetch failed",
					slog.String("token", tokenID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			bid, ask := book.BestLevels()
			ev := domain.MarketEvent{
				Venue:      domain.VenuePolymarket,
				TokenID:    tokenID,
				MarketID:   a.tokenToMarket[tokenID],
				Type:       domain.EventSnapshot,
				Bid:        bid,
				Ask:        ask,
				ReceivedAt: time.Now(),
			}
			if info, ok := a.markets[ev.MarketID]; ok {
				ev.Volume = domain.Float64(info.Volume)
			}
			return emit(gctx, a.events, ev)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("seed round complete", slog.Int("tokens", len(a.tokenIDs)))
	return nil
}

// runSession runs one connect-subscribe-read cycle. reseed re-issues a
// snapshot round after the subscription so state converges post-reconnect.
// The boolean reports whether the subscription was established.
func (a *PolymarketAdapter) runSession(ctx context.Context, reseed bool) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, a.cfg.WsHost, nil)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pmPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pmPongWait))
		return nil
	})

	sub := polymarket.WSCommand{Type: "market", AssetsIDs: a.tokenIDs}
	conn.SetWriteDeadline(time.Now().Add(pmWriteWait))
	if err := conn.WriteJSON(sub); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	a.logger.Info("stream subscribed", slog.Int("tokens", len(a.tokenIDs)))

	if reseed {
		if err := a.seed(ctx); err != nil {
			return true, fmt.Errorf("reseed: %w", err)
		}
	}

	// Close the connection when ctx ends so the blocking read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	pingTicker := time.NewTicker(pmPingPeriod)
	defer pingTicker.Stop()
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				conn.SetWriteDeadline(time.Now().Add(pmWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			return true, fmt.Errorf("read: %w", err)
		}
		receivedAt := time.Now() // stamped before parsing

		for _, ev := range a.normalize(raw, receivedAt) {
			if err := emit(ctx, a.events, ev); err != nil {
				return true, err
			}
		}
	}
}

// normalize converts one raw frame into zero or more events. Parse errors
// are logged and skipped, never fatal.
func (a *PolymarketAdapter) normalize(raw []byte, receivedAt time.Time) []domain.MarketEvent {
	// Frames may batch multiple envelopes in a JSON array.
	if len(raw) > 0 && raw[0] == '[' {
		var parts []jsoniter.RawMessage
		if err := frameJSON.Unmarshal(raw, &parts); err != nil {
			a.logger.Debug("unparseable frame batch", slog.String("error", err.Error()))
			return nil
		}
		var out []domain.MarketEvent
		for _, p := range parts {
			out = append(out, a.normalizeOne(p, receivedAt)...)
		}
		return out
	}
	return a.normalizeOne(raw, receivedAt)
}

func (a *PolymarketAdapter) normalizeOne(raw []byte, receivedAt time.Time) []domain.MarketEvent {
	var env polymarket.WSEnvelope
	if err := frameJSON.Unmarshal(raw, &env); err != nil {
		a.logger.Debug("unparseable frame", slog.String("error", err.Error()))
		return nil
	}

	switch env.EventType {
	case "book":
		var msg polymarket.WSBookMessage
		if err := frameJSON.Unmarshal(raw, &msg); err != nil {
			a.logger.Debug("bad book frame", slog.String("error", err.Error()))
			return nil
		}
		bid, ask := msg.BestLevels()
		return []domain.MarketEvent{{
			Venue:      domain.VenuePolymarket,
			TokenID:    msg.AssetID,
			MarketID:   a.tokenToMarket[msg.AssetID],
			Type:       domain.EventSnapshot,
			Bid:        bid,
			Ask:        ask,
			ReceivedAt: receivedAt,
		}}

	case "price_change":
		var msg polymarket.WSPriceChangeMessage
		if err := frameJSON.Unmarshal(raw, &msg); err != nil {
			a.logger.Debug("bad price_change frame", slog.String("error", err.Error()))
			return nil
		}
		var out []domain.MarketEvent
		for _, ch := range msg.Changes {
			assetID := ch.AssetID
			if assetID == "" {
				assetID = msg.AssetID
			}
			priceStr := ch.Best
			if priceStr == "" {
				priceStr = ch.Price
			}
			price, err := strconv.ParseFloat(priceStr, 64)
			if err != nil {
				a.logger.Debug("bad price in change", slog.String("price", priceStr))
				continue
			}
			ev := domain.MarketEvent{
				Venue:      domain.VenuePolymarket,
				TokenID:    assetID,
				MarketID:   a.tokenToMarket[assetID],
				Type:       domain.EventPriceChange,
				ReceivedAt: receivedAt,
			}
			switch ch.Side {
			case "BUY":
				ev.Bid = &price
			case "SELL":
				ev.Ask = &price
			default:
				continue
			}
			out = append(out, ev)
		}
		return out

	case "last_trade_price":
		var msg polymarket.WSLastTradeMessage
		if err := frameJSON.Unmarshal(raw, &msg); err != nil {
			a.logger.Debug("bad trade frame", slog.String("error", err.Error()))
			return nil
		}
		price, _ := strconv.ParseFloat(msg.Price, 64)
		size, _ := strconv.ParseFloat(msg.Size, 64)
		return []domain.MarketEvent{{
			Venue:      domain.VenuePolymarket,
			TokenID:    msg.AssetID,
			MarketID:   a.tokenToMarket[msg.AssetID],
			Type:       domain.EventTrade,
			Price:      price,
			Size:       size,
			ReceivedAt: receivedAt,
		}}

	default:
		// Subscription acks and keepalives count as heartbeats.
		return []domain.MarketEvent{{
			Venue:      domain.VenuePolymarket,
			Type:       domain.EventHeartbeat,
			ReceivedAt: receivedAt,
		}}
	}
}

package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simrat12/prediction-engine/internal/config"
	"github.com/simrat12/prediction-engine/internal/domain"
	"github.com/simrat12/prediction-engine/internal/metrics"
	"github.com/simrat12/prediction-engine/internal/platform/kalshi"
	"golang.org/x/sync/errgroup"
)

const (
	kalshiWriteWait  = 10 * time.Second
	kalshiPongWait   = 30 * time.Second
	kalshiPingPeriod = kalshiPongWait * 9 / 10
)

// Kalshi publishes a single ticker per market with YES-side prices; the NO
// side is implied (no_bid = 1 - yes_ask). The adapter materializes both
// outcome tokens so downstream code treats every venue uniformly.
const (
	yesSuffix = "-YES"
	noSuffix  = "-NO"
)

// KalshiAdapter streams the Kalshi ticker channel.
type KalshiAdapter struct {
	cfg    config.KalshiConfig
	client *kalshi.Client
	events chan<- domain.MarketEvent
	logger *slog.Logger

	markets       domain.MarketMap
	tokenToMarket domain.TokenToMarket
	tickers       []string
	seedWorkers   int
	cmdID         int64
}

// InitKalshi discovers open markets and builds the static tables.
func InitKalshi(
	ctx context.Context,
	cfg config.KalshiConfig,
	seedWorkers int,
	client *kalshi.Client,
	events chan<- domain.MarketEvent,
	logger *slog.Logger,
) (*KalshiAdapter, error) {
	a := &KalshiAdapter{
		cfg:         cfg,
		client:      client,
		events:      events,
		logger:      logger.With(slog.String("component", "kalshi_adapter")),
		seedWorkers: seedWorkers,
	}
	if a.seedWorkers <= 0 {
		a.seedWorkers = defaultSeedWorkers
	}

	discovered, err := client.ListOpenMarkets(ctx, kalshi.DiscoveryFilter{
		MinVolume:       cfg.MinVolume,
		MinOpenInterest: cfg.MinOpenInterest,
		MaxMarkets:      cfg.MaxMarkets,
	})
	if err != nil {
		return nil, fmt.Errorf("adapter/kalshi: discover markets: %w", err)
	}

	a.markets = make(domain.MarketMap, len(discovered))
	a.tokenToMarket = make(domain.TokenToMarket, 2*len(discovered))
	for _, m := range discovered {
		yes := m.Ticker + yesSuffix
		no := m.Ticker + noSuffix
		a.markets[m.Ticker] = domain.MarketInfo{
			MarketID:   m.Ticker,
			Question:   m.Title,
			YesTokenID: yes,
			NoTokenID:  no,
			Volume:     float64(m.Volume24H),
		}
		a.tokenToMarket[yes] = m.Ticker
		a.tokenToMarket[no] = m.Ticker
		a.tickers = append(a.tickers, m.Ticker)
	}

	a.logger.Info("markets discovered", slog.Int("markets", len(a.markets)))
	return a, nil
}

func (a *KalshiAdapter) Venue() domain.Venue { return domain.VenueKalshi }

// Tables returns the static lookup tables built at init.
func (a *KalshiAdapter) Tables() (domain.MarketMap, domain.TokenToMarket) {
	return a.markets, a.tokenToMarket
}

// Run seeds initial state and streams until ctx is cancelled or the
// reconnect budget is exhausted.
func (a *KalshiAdapter) Run(ctx context.Context) error {
	if len(a.tickers) == 0 {
		a.logger.Info("no markets to stream, adapter idle")
		<-ctx.Done()
		return ctx.Err()
	}

	if err := a.seed(ctx); err != nil {
		return fmt.Errorf("adapter/kalshi: seed: %w", err)
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
		metrics.AdapterReconnectsTotal.WithLabelValues(string(domain.VenueKalshi)).Inc()
		if attempt > maxReconnectTries {
			a.logger.Error("reconnect attempts exhausted", slog.String("error", err.Error()))
			return fmt.Errorf("adapter/kalshi: %w: %v", domain.ErrStreamExhaust, err)
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

// seed fetches the resting book for each market with bounded parallelism
// and emits snapshots for both outcome tokens.
func (a *KalshiAdapter) seed(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.seedWorkers)

	for _, ticker := range a.tickers {
		ticker := ticker
		g.Go(func() error {
			book, err := a.client.GetOrderbook(gctx, ticker)
			if err != nil {
				a.logger.Warn("seed fetch failed",
					slog.String("ticker", ticker),
					slog.String("error", err.Error()),
				)
				return nil
			}
			yesBid, yesAsk := book.Best()
			for _, ev := range a.outcomeEvents(ticker, domain.EventSnapshot, yesBid, yesAsk, time.Now()) {
				if err := emit(gctx, a.events, ev); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("seed round complete", slog.Int("markets", len(a.tickers)))
	return nil
}

// outcomeEvents builds the YES event and the implied NO event for one
// market. Missing sides propagate as nil fields.
func (a *KalshiAdapter) outcomeEvents(ticker string, typ domain.EventType, yesBid, yesAsk *float64, receivedAt time.Time) []domain.MarketEvent {
	yes := domain.MarketEvent{
		Venue:      domain.VenueKalshi,
		TokenID:    ticker + yesSuffix,
		MarketID:   ticker,
		Type:       typ,
		Bid:        yesBid,
		Ask:        yesAsk,
		ReceivedAt: receivedAt,
	}
	no := domain.MarketEvent{
		Venue:      domain.VenueKalshi,
		TokenID:    ticker + noSuffix,
		MarketID:   ticker,
		Type:       typ,
		ReceivedAt: receivedAt,
	}
	if yesAsk != nil {
		no.Bid = domain.Float64(1 - *yesAsk)
	}
	if yesBid != nil {
		no.Ask = domain.Float64(1 - *yesBid)
	}
	if yes.Bid == nil && yes.Ask == nil {
		return nil
	}
	return []domain.MarketEvent{yes, no}
}

// runSession runs one connect-subscribe-read cycle. The boolean reports
// whether the subscription was established.
func (a *KalshiAdapter) runSession(ctx context.Context, reseed bool) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, a.cfg.WsURL, nil)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(kalshiPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(kalshiPongWait))
		return nil
	})

	a.cmdID++
	sub := kalshi.WSCommand{
		ID:  a.cmdID,
		Cmd: "subscribe",
		Params: kalshi.WSCommandParams{
			Channels:      []string{"ticker", "trade"},
			MarketTickers: a.tickers,
		},
	}
	conn.SetWriteDeadline(time.Now().Add(kalshiWriteWait))
	if err := conn.WriteJSON(sub); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	a.logger.Info("stream subscribed", slog.Int("markets", len(a.tickers)))

	if reseed {
		if err := a.seed(ctx); err != nil {
			return true, fmt.Errorf("reseed: %w", err)
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	pingTicker := time.NewTicker(kalshiPingPeriod)
	defer pingTicker.Stop()
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				conn.SetWriteDeadline(time.Now().Add(kalshiWriteWait))
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
func (a *KalshiAdapter) normalize(raw []byte, receivedAt time.Time) []domain.MarketEvent {
	var env kalshi.WSEnvelope
	if err := frameJSON.Unmarshal(raw, &env); err != nil {
		a.logger.Debug("unparseable frame", slog.String("error", err.Error()))
		return nil
	}

	switch env.Type {
	case "ticker":
		var msg kalshi.WSTickerMessage
		if err := frameJSON.Unmarshal(raw, &msg); err != nil {
			a.logger.Debug("bad ticker frame", slog.String("error", err.Error()))
			return nil
		}
		var yesBid, yesAsk *float64
		if msg.Msg.YesBid > 0 {
			yesBid = domain.Float64(float64(msg.Msg.YesBid) / 100)
		}
		if msg.Msg.YesAsk > 0 {
			yesAsk = domain.Float64(float64(msg.Msg.YesAsk) / 100)
		}
		evs := a.outcomeEvents(msg.Msg.MarketTicker, domain.EventPriceChange, yesBid, yesAsk, receivedAt)
		if msg.Msg.Volume > 0 {
			for i := range evs {
				evs[i].Volume = domain.Float64(float64(msg.Msg.Volume))
			}
		}
		return evs

	case "trade":
		var msg kalshi.WSTradeMessage
		if err := frameJSON.Unmarshal(raw, &msg); err != nil {
			a.logger.Debug("bad trade frame", slog.String("error", err.Error()))
			return nil
		}
		return []domain.MarketEvent{{
			Venue:      domain.VenueKalshi,
			TokenID:    msg.Msg.MarketTicker + yesSuffix,
			MarketID:   msg.Msg.MarketTicker,
			Type:       domain.EventTrade,
			Price:      float64(msg.Msg.YesPrice) / 100,
			Size:       float64(msg.Msg.Count),
			ReceivedAt: receivedAt,
		}}

	default:
		return []domain.MarketEvent{{
			Venue:      domain.VenueKalshi,
			Type:       domain.EventHeartbeat,
			ReceivedAt: receivedAt,
		}}
	}
}

package router

import (
	"log/slog"
	"math"
	"time"

	"github.com/simrat12/prediction-engine/internal/cache"
	"github.com/simrat12/prediction-engine/internal/domain"
	"github.com/simrat12/prediction-engine/internal/metrics"
)

// worker is the single writer for one venue's cache entries. It merges
// partial events into the cache and emits compact change notifications.
// Notifications may be dropped under pressure; cache writes may not.
type worker struct {
	venue  domain.Venue
	lane   <-chan domain.MarketEvent
	cache  *cache.Cache
	notify chan<- domain.Notification
	logger *slog.Logger
}

func newWorker(
	venue domain.Venue,
	lane <-chan domain.MarketEvent,
	c *cache.Cache,
	notify chan<- domain.Notification,
	logger *slog.Logger,
) *worker {
	return &worker{
		venue:  venue,
		lane:   lane,
		cache:  c,
		notify: notify,
		logger: logger.With(slog.String("component", "worker"), slog.String("venue", string(venue))),
	}
}

// run drains the lane until it closes. It never terminates on a bad event.
func (w *worker) run() {
	for ev := range w.lane {
		w.process(ev)
	}
	w.logger.Info("worker drained")
}

func (w *worker) process(ev domain.MarketEvent) {
	metrics.AdapterEventsTotal.WithLabelValues(string(ev.Venue), string(ev.Type)).Inc()

	switch ev.Type {
	case domain.EventTrade, domain.EventHeartbeat:
		// Counted only; nothing cache-bound.
		return
	}

	if err := validate(ev); err != nil {
		w.logger.Warn("malformed event dropped",
			slog.String("token", ev.TokenID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !ev.CacheBound() {
		return
	}

	key := ev.Key()
	w.cache.UpsertMerge(key, domain.MarketState{
		BestBid:    ev.Bid,
		BestAsk:    ev.Ask,
		Volume24h:  ev.Volume,
		LastUpdate: ev.ReceivedAt,
	})

	latencyMs := float64(time.Since(ev.ReceivedAt).Microseconds()) / 1000
	metrics.AdapterEventLatencyMs.WithLabelValues(string(ev.Venue), string(ev.Type)).Observe(latencyMs)

	// Non-blocking notify: a full channel means a skipped strategy tick,
	// never a blocked cache write.
	select {
	case w.notify <- domain.Notification{Key: key, WSReceivedAt: ev.ReceivedAt}:
	default:
		metrics.WorkerNotificationDropsTotal.WithLabelValues(string(ev.Venue)).Inc()
	}
}

// validate rejects partials the cache must never see.
func validate(ev domain.MarketEvent) error {
	if ev.TokenID == "" {
		return domain.ErrInvalidEvent
	}
	for _, p := range []*float64{ev.Bid, ev.Ask, ev.Volume} {
		if p == nil {
			continue
		}
		if *p < 0 || math.IsNaN(*p) || math.IsInf(*p, 0) {
			return domain.ErrInvalidEvent
		}
	}
	return nil
}

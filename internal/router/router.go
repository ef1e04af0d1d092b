// Package router fans normalized market events out to per-venue worker
// lanes and owns the workers' lifecycle.
package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/simrat12/prediction-engine/internal/cache"
	"github.com/simrat12/prediction-engine/internal/domain"
	"github.com/simrat12/prediction-engine/internal/metrics"
)

// Router demultiplexes the single inbound event channel onto per-venue
// lanes, spawning one worker per venue on first sight. It is single-task;
// the lane map is never shared.
type Router struct {
	events          <-chan domain.MarketEvent
	notify          chan domain.Notification
	cache           *cache.Cache
	laneBuffer      int
	laneSendTimeout time.Duration
	logger          *slog.Logger

	lanes map[domain.Venue]chan domain.MarketEvent
	wg    sync.WaitGroup
}

// New creates a router. notify is owned by the router: it is closed after
// the last worker exits so the strategy engine can drain and stop.
func New(
	events <-chan domain.MarketEvent,
	notify chan domain.Notification,
	c *cache.Cache,
	laneBuffer int,
	laneSendTimeout time.Duration,
	logger *slog.Logger,
) *Router {
	return &Router{
		events:          events,
		notify:          notify,
		cache:           c,
		laneBuffer:      laneBuffer,
		laneSendTimeout: laneSendTimeout,
		logger:          logger.With(slog.String("component", "router")),
		lanes:           make(map[domain.Venue]chan domain.MarketEvent),
	}
}

// Run forwards events until the inbound channel closes or ctx is cancelled,
// then shuts down each lane and waits for the workers to drain.
func (r *Router) Run(ctx context.Context) error {
	defer func() {
		for venue, lane := range r.lanes {
			close(lane)
			delete(r.lanes, venue)
		}
		r.wg.Wait()
		close(r.notify)
		r.logger.Info("router stopped")
	}()

	r.logger.Info("router started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-r.events:
			if !ok {
				return nil
			}
			r.dispatch(ctx, ev)
		}
	}
}

// dispatch forwards one event to its venue lane, spawning the lane on first
// sight. A full lane gets a bounded wait, then the event is dropped.
func (r *Router) dispatch(ctx context.Context, ev domain.MarketEvent) {
	lane, ok := r.lanes[ev.Venue]
	if !ok {
		lane = r.spawnLane(ev.Venue)
	}

	select {
	case lane <- ev:
		return
	default:
	}

	// Lane full: wait up to the bounded timeout, then drop and count.
	timer := time.NewTimer(r.laneSendTimeout)
	defer timer.Stop()
	select {
	case lane <- ev:
	case <-timer.C:
		metrics.RouterOverflowTotal.WithLabelValues(string(ev.Venue)).Inc()
	case <-ctx.Done():
	}
}

func (r *Router) spawnLane(venue domain.Venue) chan domain.MarketEvent {
	lane := make(chan domain.MarketEvent, r.laneBuffer)
	r.lanes[venue] = lane

	w := newWorker(venue, lane, r.cache, r.notify, r.logger)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		w.run()
	}()

	r.logger.Info("worker lane spawned", slog.String("venue", string(venue)))
	return lane
}

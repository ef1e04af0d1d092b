// Package app wires the pipeline together and manages its lifecycle.
package app

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/simrat12/prediction-engine/internal/adapter"
	"github.com/simrat12/prediction-engine/internal/config"
)

// App is the root application object.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies, starts every pipeline task, and blocks until the
// context is cancelled. Shutdown propagates by closing the event channel
// once all adapters have exited: the router closes its lanes, workers drain,
// the notification channel closes, the engine closes the signal channel, and
// the bridge drains and stops.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, cleanup)

	g, gctx := errgroup.WithContext(ctx)

	// The pipeline tasks stop on channel closure, not on cancellation, so
	// events and signals already queued are drained on shutdown.
	pipeCtx := context.WithoutCancel(gctx)

	if deps.Metrics != nil {
		g.Go(func() error { return ignoreCanceled(deps.Metrics.Run(gctx)) })
	}
	g.Go(func() error { return ignoreCanceled(deps.Router.Run(pipeCtx)) })
	g.Go(func() error { return ignoreCanceled(deps.Engine.Run(pipeCtx)) })
	g.Go(func() error { return ignoreCanceled(deps.Bridge.Run(pipeCtx)) })

	// Adapters run outside the errgroup: a venue exhausting its reconnect
	// budget must not take the rest of the pipeline down. The event channel
	// closes only after the last adapter has exited.
	var adapterWG sync.WaitGroup
	for _, ad := range deps.Adapters {
		adapterWG.Add(1)
		go func(ad adapter.Adapter) {
			defer adapterWG.Done()
			if err := ad.Run(gctx); err != nil && gctx.Err() == nil {
				a.logger.Error("adapter terminated",
					slog.String("venue", string(ad.Venue())),
					slog.String("error", err.Error()),
				)
			}
		}(ad)
	}
	g.Go(func() error {
		adapterWG.Wait()
		close(deps.Events)
		return nil
	})

	a.logger.Info("engine running",
		slog.Int("adapters", len(deps.Adapters)),
		slog.String("executor", a.cfg.Executor.Kind),
	)
	return g.Wait()
}

// Close tears down external resources in reverse registration order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// ignoreCanceled keeps an orderly shutdown from surfacing as an error.
func ignoreCanceled(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}

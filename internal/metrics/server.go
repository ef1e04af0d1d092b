package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simrat12/prediction-engine/internal/domain"
)

// Snapshotter is the diagnostic view of the market cache.
type Snapshotter interface {
	SnapshotAll() []domain.KeyedState
}

// Server exposes /metrics, /healthz, and a /markets cache snapshot.
type Server struct {
	addr   string
	cache  Snapshotter
	logger *slog.Logger
	srv    *http.Server
}

// NewServer creates the ops server listening on addr (e.g. ":9000").
func NewServer(addr string, cache Snapshotter, logger *slog.Logger) *Server {
	return &Server{
		addr:   addr,
		cache:  cache,
		logger: logger.With(slog.String("component", "metrics_server")),
	}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/markets", s.handleMarkets).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ops server listening", slog.String("addr", s.addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type marketRow struct {
	Venue      string    `json:"venue"`
	TokenID    string    `json:"token_id"`
	BestBid    *float64  `json:"best_bid"`
	BestAsk    *float64  `json:"best_ask"`
	Volume24h  *float64  `json:"volume_24h"`
	LastUpdate time.Time `json:"last_update"`
}

// handleMarkets dumps the cache. Diagnostics only; not on the hot path.
func (s *Server) handleMarkets(w http.ResponseWriter, _ *http.Request) {
	entries := s.cache.SnapshotAll()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Key.Venue != entries[j].Key.Venue {
			return entries[i].Key.Venue < entries[j].Key.Venue
		}
		return entries[i].Key.TokenID < entries[j].Key.TokenID
	})

	rows := make([]marketRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, marketRow{
			Venue:      string(e.Key.Venue),
			TokenID:    e.Key.TokenID,
			BestBid:    e.State.BestBid,
			BestAsk:    e.State.BestAsk,
			Volume24h:  e.State.Volume24h,
			LastUpdate: e.State.LastUpdate,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

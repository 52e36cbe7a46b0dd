package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"kickday/internal/state"
)

type health struct {
	Status      string    `json:"status"`
	NextTrigger time.Time `json:"next_trigger"`
	LastTrigger time.Time `json:"last_trigger,omitempty"`
	LastFiredAt time.Time `json:"last_fired_at,omitempty"`
	LastSignals int       `json:"last_signals"`
	LastOrders  int       `json:"last_orders"`
}

func NewRouter(registry *Registry, store *state.Store) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry.Gatherer(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		snapshot := store.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(health{
			Status:      "ok",
			NextTrigger: snapshot.NextTrigger,
			LastTrigger: snapshot.LastFiring.TriggerAt,
			LastFiredAt: snapshot.LastFiring.FiredAt,
			LastSignals: snapshot.LastFiring.Signals,
			LastOrders:  snapshot.LastFiring.Orders,
		})
	}).Methods(http.MethodGet)
	return router
}

// Serve blocks until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

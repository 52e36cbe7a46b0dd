package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kickday/internal/state"
)

func TestRegistryCounters(t *testing.T) {
	r := NewRegistry()
	r.ObserveFiring(150 * time.Millisecond)
	r.ObserveSignal("SBER", "BUY")
	r.ObserveSignal("SBER", "BUY")
	r.ObserveOrder("SBER", "order_submitted")
	r.ObserveDataUnavailable("firing")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Firings))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Signals.WithLabelValues("SBER", "BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Orders.WithLabelValues("SBER", "order_submitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.DataUnavailable.WithLabelValues("firing")))
}

func TestRouterServesMetricsAndHealth(t *testing.T) {
	r := NewRegistry()
	trigger := time.Date(2024, time.June, 4, 18, 35, 0, 0, time.UTC)
	r.SetNextTrigger(trigger)
	r.ObserveFiring(time.Second)

	store := state.NewStore()
	store.SetNextTrigger(trigger)
	store.RecordFiring(state.Firing{Signals: 3, Orders: 2})

	router := NewRouter(r, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "kickday_firings_total 1"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.True(t, trigger.Equal(body.NextTrigger))
	assert.Equal(t, 2, body.LastOrders)
}

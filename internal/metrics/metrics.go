package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the kick day collectors on a private registry.
type Registry struct {
	registry *prometheus.Registry

	Firings          prometheus.Counter
	FiringDuration   prometheus.Histogram
	Signals          *prometheus.CounterVec
	Orders           *prometheus.CounterVec
	DataUnavailable  *prometheus.CounterVec
	NextTriggerEpoch prometheus.Gauge
}

func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		Firings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kickday_firings_total",
			Help: "Number of completed trigger firings",
		}),
		FiringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kickday_firing_duration_seconds",
			Help:    "Wall time of one firing across all instruments",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kickday_signals_total",
			Help: "Gap decisions by instrument and action",
		}, []string{"symbol", "action"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kickday_orders_total",
			Help: "Order submissions by result",
		}, []string{"symbol", "result"}),
		DataUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kickday_data_unavailable_total",
			Help: "Skipped evaluations due to missing prices, by scope",
		}, []string{"scope"}),
		NextTriggerEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kickday_next_trigger_timestamp_seconds",
			Help: "Unix time of the next scheduled firing",
		}),
	}
	r.registry.MustRegister(
		r.Firings,
		r.FiringDuration,
		r.Signals,
		r.Orders,
		r.DataUnavailable,
		r.NextTriggerEpoch,
	)
	return r
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) ObserveFiring(duration time.Duration) {
	r.Firings.Inc()
	r.FiringDuration.Observe(duration.Seconds())
}

func (r *Registry) ObserveSignal(symbol, action string) {
	r.Signals.WithLabelValues(symbol, action).Inc()
}

func (r *Registry) ObserveOrder(symbol, result string) {
	r.Orders.WithLabelValues(symbol, result).Inc()
}

func (r *Registry) ObserveDataUnavailable(scope string) {
	r.DataUnavailable.WithLabelValues(scope).Inc()
}

func (r *Registry) SetNextTrigger(t time.Time) {
	r.NextTriggerEpoch.Set(float64(t.Unix()))
}

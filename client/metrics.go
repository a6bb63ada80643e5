package client

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Metrics counts client activity. A nil *Metrics records nothing.
type Metrics struct {
	results   *prometheus.CounterVec
	errors    *prometheus.CounterVec
	watchers  prometheus.Gauge
	publishes prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxgqlgenc",
			Name:      "results_total",
			Help:      "Results delivered to handlers, by source.",
		}, []string{"source"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxgqlgenc",
			Name:      "errors_total",
			Help:      "Errors delivered to handlers, by kind.",
		}, []string{"kind"}),
		watchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rxgqlgenc",
			Name:      "watchers_active",
			Help:      "Watchers registered with the store.",
		}),
		publishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rxgqlgenc",
			Name:      "store_publishes_total",
			Help:      "Server responses written to the store.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.results, m.errors, m.watchers, m.publishes)
	}

	return m
}

func errorKind(err error) string {
	var rerr *GraphQLResultError
	var gerrs gqlerror.List

	switch {
	case errors.As(err, &rerr):
		return "result"
	case errors.Is(err, ErrCacheMiss):
		return "cache_miss"
	case errors.As(err, &gerrs):
		return "graphql"
	case errors.Is(err, ErrComplete):
		return ""
	default:
		return "transport"
	}
}

func (m *Metrics) observe(res *Result, err error) {
	if m == nil {
		return
	}

	if err != nil {
		if kind := errorKind(err); kind != "" {
			m.errors.WithLabelValues(kind).Inc()
		}
		return
	}

	if res != nil {
		m.results.WithLabelValues(res.Source.String()).Inc()
	}
}

func (m *Metrics) published() {
	if m == nil {
		return
	}

	m.publishes.Inc()
}

func (m *Metrics) watcherAdded(delta float64) {
	if m == nil {
		return
	}

	m.watchers.Add(delta)
}

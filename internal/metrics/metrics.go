// Package metrics holds the prometheus collectors shared by the request
// pipeline and the refresh coordinator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clinic_client"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	RefreshFlights  prometheus.Counter
	RefreshShared   prometheus.Counter
	RefreshFailures prometheus.Counter
	Retries         prometheus.Counter
	RetrySkipped    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when it is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RefreshFlights: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_flights_total",
			Help:      "Token refresh calls issued to the backend.",
		}),
		RefreshShared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_shared_total",
			Help:      "Refresh results delivered to a caller that shared the flight with others.",
		}),
		RefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_failures_total",
			Help:      "Refresh flights that ended in an error.",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "Requests re-issued after a 401 and a successful refresh.",
		}),
		RetrySkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retry_skipped_total",
			Help:      "401 responses passed through without a refresh, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.RefreshFlights, m.RefreshShared, m.RefreshFailures, m.Retries, m.RetrySkipped)
	}
	return m
}

func (m *Metrics) FlightStarted() {
	if m != nil {
		m.RefreshFlights.Inc()
	}
}

func (m *Metrics) FlightShared() {
	if m != nil {
		m.RefreshShared.Inc()
	}
}

func (m *Metrics) FlightFailed() {
	if m != nil {
		m.RefreshFailures.Inc()
	}
}

func (m *Metrics) Retried() {
	if m != nil {
		m.Retries.Inc()
	}
}

func (m *Metrics) Skipped(reason string) {
	if m != nil {
		m.RetrySkipped.WithLabelValues(reason).Inc()
	}
}

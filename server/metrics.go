package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type serverMetrics struct {
	requests *prometheus.CounterVec
	issued   *prometheus.CounterVec
}

func newServerMetrics(reg *prometheus.Registry) *serverMetrics {
	m := &serverMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_stub",
			Name:      "http_requests_total",
			Help:      "Requests served, by route pattern and status.",
		}, []string{"route", "status"}),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_stub",
			Name:      "access_tokens_issued_total",
			Help:      "Access tokens issued, by grant (login, register, refresh).",
		}, []string{"grant"}),
	}
	reg.MustRegister(
		m.requests,
		m.issued,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

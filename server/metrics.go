package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry         *prometheus.Registry
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	panicAlertsTotal prometheus.Counter
}

func newMetrics(activeSessions func() float64) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safetrip",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method & status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "safetrip",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		panicAlertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "safetrip",
			Name:      "panic_alerts_total",
			Help:      "Panic alerts recorded.",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.panicAlertsTotal,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "safetrip",
			Name:      "active_sessions",
			Help:      "Sessions currently registered.",
		}, activeSessions),
		collectors.NewGoCollector(),
	)

	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{ResponseWriter: w, Status: http.StatusOK}

		next.ServeHTTP(responseWriter, r)

		route := "unknown"
		if currentRoute := mux.CurrentRoute(r); currentRoute != nil {
			if template, err := currentRoute.GetPathTemplate(); err == nil {
				route = template
			}
		}

		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(responseWriter.Status)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

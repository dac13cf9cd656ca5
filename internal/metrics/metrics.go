// Package metrics exposes Prometheus collectors for job execution and
// the HTTP API. Metric emission is optional diagnostics; nil *Set is a
// valid no-op everywhere.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Set struct {
	reg *prometheus.Registry

	runs     *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.SummaryVec

	registered prometheus.Gauge

	httpDuration *prometheus.SummaryVec
}

// New builds a Set backed by its own registry so repeated construction
// (tests, API restarts) never trips duplicate-registration panics.
func New(namespace string) *Set {
	reg := prometheus.NewRegistry()
	s := &Set{
		reg: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Job execution attempts by final result of the attempt.",
		}, []string{"job", "result"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_retries_total",
			Help:      "Retries scheduled after failed attempts.",
		}, []string{"job"}),
		duration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "job_duration_ms",
			Help:      "Per-attempt task duration in milliseconds.",
			Objectives: map[float64]float64{
				0.5:  0.01,
				0.9:  0.01,
				0.99: 0.001,
			},
		}, []string{"job", "success"}),
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_registered",
			Help:      "Jobs bound to the cron scheduler.",
		}),
		httpDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "API response time in milliseconds.",
			Objectives: map[float64]float64{
				0.5:  0.01,
				0.9:  0.01,
				0.99: 0.001,
			},
		}, []string{"method", "pattern", "status"}),
	}
	reg.MustRegister(s.runs, s.retries, s.duration, s.registered, s.httpDuration)
	reg.MustRegister(collectors.NewGoCollector())
	return s
}

func (s *Set) ObserveRun(job string, success bool, durMS float64) {
	if s == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	s.runs.WithLabelValues(job, result).Inc()
	s.duration.WithLabelValues(job, strconv.FormatBool(success)).Observe(durMS)
}

func (s *Set) IncRetry(job string) {
	if s == nil {
		return
	}
	s.retries.WithLabelValues(job).Inc()
}

func (s *Set) SetRegistered(n int) {
	if s == nil {
		return
	}
	s.registered.Set(float64(n))
}

func (s *Set) ObserveHTTP(method, pattern string, status int, durMS float64) {
	if s == nil {
		return
	}
	s.httpDuration.WithLabelValues(method, pattern, strconv.Itoa(status)).Observe(durMS)
}

// Handler serves the /metrics endpoint for this Set's registry.
func (s *Set) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})
}

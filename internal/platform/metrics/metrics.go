// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics exposes Prometheus counters for sign-in activity.
//
// # Architecture
//
// Each [Metrics] owns its registry, so tests can build as many instances as
// they need without colliding on the process-wide default registry. The HTTP
// layer records outcomes through the small [Recorder] interface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/letsworkapps/authportal/internal/platform/constants"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Recorder receives sign-in events.
type Recorder interface {
	LoginAttempt(method, outcome string)
	Registration(outcome string)
	ProviderExchange(outcome string, duration time.Duration)
}

// Metrics holds the portal's collectors.
type Metrics struct {
	registry *prometheus.Registry

	loginAttempts    *prometheus.CounterVec
	registrations    *prometheus.CounterVec
	providerExchange *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		loginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: constants.AppName,
				Name:      "login_attempts_total",
				Help:      "Total number of sign-in attempts by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: constants.AppName,
				Name:      "registrations_total",
				Help:      "Total number of registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		providerExchange: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: constants.AppName,
				Name:      "provider_exchange_duration_seconds",
				Help:      "Duration of identity provider callback exchanges in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
}

// LoginAttempt counts one sign-in attempt.
func (m *Metrics) LoginAttempt(method, outcome string) {
	m.loginAttempts.WithLabelValues(method, outcome).Inc()
}

// Registration counts one registration attempt.
func (m *Metrics) Registration(outcome string) {
	m.registrations.WithLabelValues(outcome).Inc()
}

// ProviderExchange observes the duration of one callback exchange.
func (m *Metrics) ProviderExchange(outcome string, duration time.Duration) {
	m.providerExchange.WithLabelValues(outcome).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Nop discards every event.
type Nop struct{}

// LoginAttempt implements [Recorder].
func (Nop) LoginAttempt(string, string) {}

// Registration implements [Recorder].
func (Nop) Registration(string) {}

// ProviderExchange implements [Recorder].
func (Nop) ProviderExchange(string, time.Duration) {}

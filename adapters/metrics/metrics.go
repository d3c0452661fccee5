// Package metrics provides Prometheus metrics collection for Pulsegate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the gateway.
type Collector struct {
	// Pipeline metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Quota metrics
	QuotaDenials *prometheus.CounterVec

	// Security metrics
	SecurityChecks  *prometheus.CounterVec
	SecurityBlocked *prometheus.CounterVec

	// Dispatch metrics
	DispatchDuration *prometheus.HistogramVec
	DispatchErrors   *prometheus.CounterVec

	// Audit metrics
	AuditEntries prometheus.Gauge
}

// New creates a collector registered on the default registry.
func New() *Collector {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates a collector registered on the given registerer.
// Tests pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pulsegate",
				Name:      "requests_total",
				Help:      "Total pipeline runs by terminal outcome",
			},
			[]string{"outcome", "provider"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pulsegate",
				Name:      "request_duration_seconds",
				Help:      "Full pipeline duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pulsegate",
				Name:      "requests_in_flight",
				Help:      "Pipeline runs currently executing",
			},
		),

		QuotaDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pulsegate",
				Name:      "quota_denials_total",
				Help:      "Quota check denials by reason",
			},
			[]string{"reason"},
		),

		SecurityChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pulsegate",
				Name:      "security_checks_total",
				Help:      "Injection filter checks by result",
			},
			[]string{"result"},
		),
		SecurityBlocked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pulsegate",
				Name:      "security_blocked_total",
				Help:      "Injection filter blocks by category",
			},
			[]string{"category"},
		),

		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pulsegate",
				Name:      "dispatch_duration_seconds",
				Help:      "Adapter dispatch duration in seconds",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),
		DispatchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pulsegate",
				Name:      "dispatch_errors_total",
				Help:      "Adapter dispatch failures by kind",
			},
			[]string{"provider", "kind"},
		),

		AuditEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pulsegate",
				Name:      "audit_entries",
				Help:      "Entries currently retained in the audit trail",
			},
		),
	}
}

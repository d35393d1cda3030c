// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "custody"

// Transfer outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the engine collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	transfers       *prometheus.CounterVec
	transferLatency *prometheus.HistogramVec
	pendingCreated  *prometheus.CounterVec
	confirmations   *prometheus.CounterVec
	rpcCalls        *prometheus.CounterVec
	incoming        *prometheus.CounterVec

	gaugeOnce sync.Once
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Executed transfers by network, kind and outcome.",
		}, []string{"network", "kind", "outcome", "reason"}),
		transferLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Time from confirmation to inclusion or failure.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"network", "kind"}),
		pendingCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_created_total",
			Help:      "Transfer intents staged for confirmation.",
		}, []string{"network", "kind"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Confirmation attempts by result.",
		}, []string{"result"}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_reads_total",
			Help:      "Balance reads by network and result.",
		}, []string{"network", "result"}),
		incoming: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incoming_transfers_total",
			Help:      "Inbound transfers seen by the watcher.",
		}, []string{"network", "symbol"}),
	}

	startTime := time.Now()
	m.registry.MustRegister(
		m.transfers,
		m.transferLatency,
		m.pendingCreated,
		m.confirmations,
		m.rpcCalls,
		m.incoming,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the engine started.",
		}, func() float64 {
			return time.Since(startTime).Seconds()
		}),
	)

	return m
}

// ObserveTransfer records one executor run.
func (m *Metrics) ObserveTransfer(network, kind, outcome, reason string, elapsed time.Duration) {
	m.transfers.WithLabelValues(network, kind, outcome, reason).Inc()
	m.transferLatency.WithLabelValues(network, kind).Observe(elapsed.Seconds())
}

// RecordPendingCreated counts a staged intent.
func (m *Metrics) RecordPendingCreated(network, kind string) {
	m.pendingCreated.WithLabelValues(network, kind).Inc()
}

// RecordConfirmation counts a confirm attempt.
func (m *Metrics) RecordConfirmation(matched bool) {
	result := "matched"
	if !matched {
		result = "rejected"
	}
	m.confirmations.WithLabelValues(result).Inc()
}

// RecordBalanceRead counts a balance lookup.
func (m *Metrics) RecordBalanceRead(network string, err error) {
	result := OutcomeSuccess
	if err != nil {
		result = OutcomeFailure
	}
	m.rpcCalls.WithLabelValues(network, result).Inc()
}

// RecordIncoming counts an inbound transfer.
func (m *Metrics) RecordIncoming(network, symbol string) {
	m.incoming.WithLabelValues(network, symbol).Inc()
}

// TrackPending exports the live pending entry count. Only the first call
// registers the gauge.
func (m *Metrics) TrackPending(size func() int) {
	m.gaugeOnce.Do(func() {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_transactions",
			Help:      "Transfer intents awaiting confirmation.",
		}, func() float64 {
			return float64(size())
		}))
	})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package metrics holds the Prometheus collectors of the execution core.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomePanic       = "panic"
	OutcomeUnsupported = "unsupported"
	OutcomeDenied      = "denied"
)

// Metrics groups the collectors registered for one process.
type Metrics struct {
	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	hostCallsTotal     *prometheus.CounterVec
	guestPanicsTotal   prometheus.Counter
	queueDepth         prometheus.Gauge
	abandonedTotal     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		invocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wasmfn_invocations_total",
				Help: "Total number of guest invocations",
			},
			[]string{"function", "outcome"},
		),
		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wasmfn_invocation_duration_seconds",
				Help:    "Duration of guest invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"function"},
		),
		hostCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wasmfn_host_calls_total",
				Help: "Total number of guest to host calls",
			},
			[]string{"namespace", "operation", "outcome"},
		),
		guestPanicsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wasmfn_guest_panics_total",
				Help: "Total number of panics reported by guests",
			},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wasmfn_worker_queue_depth",
				Help: "Number of invocations waiting in worker queues",
			},
		),
		abandonedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wasmfn_invocations_abandoned_total",
				Help: "Total number of results discarded because the caller went away",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.invocationsTotal,
		m.invocationDuration,
		m.hostCallsTotal,
		m.guestPanicsTotal,
		m.queueDepth,
		m.abandonedTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveInvocation records one finished invocation.
func (m *Metrics) ObserveInvocation(function, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.invocationsTotal.WithLabelValues(function, outcome).Inc()
	m.invocationDuration.WithLabelValues(function).Observe(d.Seconds())
}

// ObserveHostCall records one dispatched host call.
func (m *Metrics) ObserveHostCall(namespace, operation, outcome string) {
	if m == nil {
		return
	}
	m.hostCallsTotal.WithLabelValues(namespace, operation, outcome).Inc()
}

// GuestPanicked counts a panic reported by a guest.
func (m *Metrics) GuestPanicked() {
	if m == nil {
		return
	}
	m.guestPanicsTotal.Inc()
}

// QueueAdd moves the queue depth gauge by delta.
func (m *Metrics) QueueAdd(delta int) {
	if m == nil {
		return
	}
	m.queueDepth.Add(float64(delta))
}

// Abandoned counts a result nobody was waiting for.
func (m *Metrics) Abandoned() {
	if m == nil {
		return
	}
	m.abandonedTotal.Inc()
}

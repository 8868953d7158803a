package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes recorded by FulfillmentMetrics.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// FulfillmentMetrics tracks fulfillment command outcomes and serialization retries.
type FulfillmentMetrics struct {
	commands *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lines    *prometheus.CounterVec
}

// NewFulfillmentMetrics registers the fulfillment metrics on reg. A nil
// registerer yields a no-op recorder.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fulfillment",
		Name:      "commands_total",
		Help:      "Fulfillment commands by operation and outcome.",
	}, []string{"operation", "outcome"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fulfillment",
		Name:      "conflict_retries_total",
		Help:      "Serialization conflicts retried by operation.",
	}, []string{"operation"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "fulfillment",
		Name:      "command_duration_seconds",
		Help:      "Duration of fulfillment commands including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	lines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fulfillment",
		Name:      "lines_transitioned_total",
		Help:      "Order lines moved out of pending, by target status.",
	}, []string{"status"})
	reg.MustRegister(commands, retries, duration, lines)
	return &FulfillmentMetrics{
		commands: commands,
		retries:  retries,
		duration: duration,
		lines:    lines,
	}
}

// ObserveCommand records one finished command.
func (m *FulfillmentMetrics) ObserveCommand(operation, outcome string, took time.Duration) {
	if m == nil || m.commands == nil {
		return
	}
	op := normalizeLabel(operation)
	m.commands.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(op).Observe(took.Seconds())
}

// IncConflictRetry counts one retried serialization failure.
func (m *FulfillmentMetrics) IncConflictRetry(operation string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(normalizeLabel(operation)).Inc()
}

// AddLines counts lines that reached status.
func (m *FulfillmentMetrics) AddLines(status string, n int) {
	if m == nil || m.lines == nil || n <= 0 {
		return
	}
	m.lines.WithLabelValues(normalizeLabel(status)).Add(float64(n))
}

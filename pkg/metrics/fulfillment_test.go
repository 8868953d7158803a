package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFulfillmentMetricsRecordsCommands(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFulfillmentMetrics(reg)

	m.ObserveCommand("fulfill_by_code", OutcomeSuccess, 10*time.Millisecond)
	m.ObserveCommand("fulfill_by_code", OutcomeSuccess, 20*time.Millisecond)
	m.ObserveCommand("fulfill_by_code", OutcomeRejected, time.Millisecond)
	m.IncConflictRetry("fulfill_by_code")
	m.AddLines("fulfilled", 3)
	m.AddLines("cancelled", 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	family := findMetricFamily(mfs, "packfinderz_fulfillment_commands_total")
	require.NotNil(t, family)
	var success, rejected float64
	for _, metric := range family.GetMetric() {
		if !matchesLabel(metric.GetLabel(), "operation", "fulfill_by_code") {
			continue
		}
		switch {
		case matchesLabel(metric.GetLabel(), "outcome", OutcomeSuccess):
			success = metric.GetCounter().GetValue()
		case matchesLabel(metric.GetLabel(), "outcome", OutcomeRejected):
			rejected = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, success)
	assert.Equal(t, 1.0, rejected)

	retries, err := fetchCounterValue(mfs, "packfinderz_fulfillment_conflict_retries_total", "operation", "fulfill_by_code")
	require.NoError(t, err)
	assert.Equal(t, 1.0, retries)

	lines, err := fetchCounterValue(mfs, "packfinderz_fulfillment_lines_transitioned_total", "status", "fulfilled")
	require.NoError(t, err)
	assert.Equal(t, 3.0, lines)
	_, err = fetchCounterValue(mfs, "packfinderz_fulfillment_lines_transitioned_total", "status", "cancelled")
	assert.Error(t, err)

	sum, err := fetchHistogramSum(mfs, "packfinderz_fulfillment_command_duration_seconds", "operation", "fulfill_by_code")
	require.NoError(t, err)
	assert.InDelta(t, 0.031, sum, 0.0001)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var f *FulfillmentMetrics
	f.ObserveCommand("op", OutcomeError, time.Second)
	f.IncConflictRetry("op")
	f.AddLines("fulfilled", 1)

	unregistered := NewFulfillmentMetrics(nil)
	unregistered.ObserveCommand("op", OutcomeSuccess, time.Second)

	var o *OutboxMetrics
	o.IncPublished("e")
	o.IncFailed("e")
	o.IncDeadLettered("r")

	var c *CronJobMetrics
	c.IncSuccess("job")
}

func TestOutboxMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("order.status_changed")
	m.IncFailed("order.status_changed")
	m.IncDeadLettered("")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	published, err := fetchCounterValue(mfs, "packfinderz_outbox_published_total", "event_type", "order.status_changed")
	require.NoError(t, err)
	assert.Equal(t, 1.0, published)

	dlq, err := fetchCounterValue(mfs, "packfinderz_outbox_dead_lettered_total", "reason", "unknown")
	require.NoError(t, err)
	assert.Equal(t, 1.0, dlq)
}

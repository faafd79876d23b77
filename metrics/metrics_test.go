package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmfn/wasmfn/metrics"
)

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)

	_, err = metrics.New(reg)
	assert.Error(t, err, "second registration must collide")
}

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	m.ObserveInvocation("text", metrics.OutcomeOK, 10*time.Millisecond)
	m.ObserveInvocation("text", metrics.OutcomePanic, time.Millisecond)
	m.ObserveHostCall("db", "get", metrics.OutcomeOK)
	m.GuestPanicked()
	m.QueueAdd(3)
	m.QueueAdd(-1)

	expected := `
# HELP wasmfn_invocations_total Total number of guest invocations
# TYPE wasmfn_invocations_total counter
wasmfn_invocations_total{function="text",outcome="ok"} 1
wasmfn_invocations_total{function="text",outcome="panic"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "wasmfn_invocations_total"))

	count, err := testutil.GatherAndCount(reg, "wasmfn_host_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expectedDepth := `
# HELP wasmfn_worker_queue_depth Number of invocations waiting in worker queues
# TYPE wasmfn_worker_queue_depth gauge
wasmfn_worker_queue_depth 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expectedDepth), "wasmfn_worker_queue_depth"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveInvocation("text", metrics.OutcomeOK, time.Second)
		m.ObserveHostCall("db", "get", metrics.OutcomeOK)
		m.GuestPanicked()
		m.QueueAdd(1)
		m.Abandoned()
	})
}

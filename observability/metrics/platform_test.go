package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPlatformMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPlatform(reg)

	m.ObserveCommit(12, 3, 2)
	m.ObserveTransition("credit_transfer", "accepted")
	m.ObserveTransition("credit_transfer", "accepted")
	m.ObserveTransition("", "rejected")
	m.ObserveFees(100, 40, 5)
	m.ObserveEpochClose(900, 7)
	m.ObserveRotation()
	m.ObserveBlockDuration(3 * time.Millisecond)
	m.ObserveContractCache(4, 1)

	require.Equal(t, float64(12), testutil.ToFloat64(m.height))
	require.Equal(t, float64(3), testutil.ToFloat64(m.epoch))
	require.Equal(t, float64(2), testutil.ToFloat64(m.protocolVersion))
	require.Equal(t, float64(2), testutil.ToFloat64(m.transitions.WithLabelValues("credit_transfer", "accepted")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("unknown", "rejected")))
	require.Equal(t, float64(100), testutil.ToFloat64(m.feesCharged.WithLabelValues("processing")))
	require.Equal(t, float64(900), testutil.ToFloat64(m.epochPaid))
	require.Equal(t, float64(7), testutil.ToFloat64(m.epochCarry))
	require.Equal(t, float64(1), testutil.ToFloat64(m.epochCloses))
	require.Equal(t, float64(4), testutil.ToFloat64(m.contractCache.WithLabelValues("hit")))
	require.Equal(t, 1, testutil.CollectAndCount(m.blockDuration))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *PlatformMetrics
	m.ObserveCommit(1, 0, 1)
	m.ObserveTransition("x", "accepted")
	m.ObserveFees(1, 1, 1)
	m.ObserveEpochClose(1, 1)
	m.ObserveRotation()
	m.ObserveBlockDuration(time.Second)
	m.ObserveContractCache(1, 1)
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPlatform(reg)
	require.Panics(t, func() { NewPlatform(reg) })
}

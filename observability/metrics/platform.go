// Package metrics exposes the execution pipeline to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PlatformMetrics is safe to use as a nil pointer; every method is then a
// no-op.
type PlatformMetrics struct {
	height          prometheus.Gauge
	epoch           prometheus.Gauge
	protocolVersion prometheus.Gauge
	transitions     *prometheus.CounterVec
	feesCharged     *prometheus.CounterVec
	epochPaid       prometheus.Counter
	epochCarry      prometheus.Gauge
	epochCloses     prometheus.Counter
	rotations       prometheus.Counter
	blockDuration   prometheus.Histogram
	contractCache   *prometheus.CounterVec
}

// NewPlatform creates the collectors and registers them on reg.
func NewPlatform(reg prometheus.Registerer) *PlatformMetrics {
	m := &PlatformMetrics{
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "platform_block_height",
			Help: "Height of the last committed block.",
		}),
		epoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "platform_epoch_index",
			Help: "Index of the running epoch.",
		}),
		protocolVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "platform_protocol_version",
			Help: "Protocol version of the last committed block.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "platform_transitions_total",
			Help: "Finalized state transitions by kind and result.",
		}, []string{"kind", "result"}),
		feesCharged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "platform_fees_charged_credits_total",
			Help: "Credits charged to identities by fee component.",
		}, []string{"component"}),
		epochPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platform_epoch_paid_credits_total",
			Help: "Credits paid out to proposers at epoch close.",
		}),
		epochCarry: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "platform_epoch_carry_credits",
			Help: "Credits carried into the running epoch.",
		}),
		epochCloses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platform_epoch_closes_total",
			Help: "Number of epochs sealed.",
		}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platform_quorum_rotations_total",
			Help: "Number of validator set updates emitted.",
		}),
		blockDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "platform_finalize_block_seconds",
			Help:    "Time spent executing a finalized block.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		contractCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "platform_contract_cache_lookups_total",
			Help: "Block-scoped contract cache lookups by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.height,
		m.epoch,
		m.protocolVersion,
		m.transitions,
		m.feesCharged,
		m.epochPaid,
		m.epochCarry,
		m.epochCloses,
		m.rotations,
		m.blockDuration,
		m.contractCache,
	)
	return m
}

func (m *PlatformMetrics) ObserveCommit(height uint64, epoch uint16, protocol uint32) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
	m.epoch.Set(float64(epoch))
	m.protocolVersion.Set(float64(protocol))
}

// ObserveTransition counts one finalized transition. result is "accepted",
// "rejected" or "bumped".
func (m *PlatformMetrics) ObserveTransition(kind, result string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.transitions.WithLabelValues(kind, result).Inc()
}

func (m *PlatformMetrics) ObserveFees(processing, storage, refunds uint64) {
	if m == nil {
		return
	}
	m.feesCharged.WithLabelValues("processing").Add(float64(processing))
	m.feesCharged.WithLabelValues("storage").Add(float64(storage))
	m.feesCharged.WithLabelValues("refund").Add(float64(refunds))
}

func (m *PlatformMetrics) ObserveEpochClose(paid, carry uint64) {
	if m == nil {
		return
	}
	m.epochCloses.Inc()
	m.epochPaid.Add(float64(paid))
	m.epochCarry.Set(float64(carry))
}

func (m *PlatformMetrics) ObserveRotation() {
	if m == nil {
		return
	}
	m.rotations.Inc()
}

func (m *PlatformMetrics) ObserveBlockDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.blockDuration.Observe(d.Seconds())
}

func (m *PlatformMetrics) ObserveContractCache(hits, misses uint64) {
	if m == nil {
		return
	}
	m.contractCache.WithLabelValues("hit").Add(float64(hits))
	m.contractCache.WithLabelValues("miss").Add(float64(misses))
}

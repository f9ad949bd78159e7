package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CoreMetrics instruments the Core tick state machine: outcome counters per
// FSM transition, exchange rate, and slashing effect gauges. Grounded on the
// lazily-initialised sync.Once registry pattern used throughout the teacher's
// observability/metrics.go (ModuleMetrics, Payoutd, Consensus).
type CoreMetrics struct {
	tickOutcomes   *prometheus.CounterVec
	exchangeRate   prometheus.Gauge
	slashingEffect *prometheus.GaugeVec
	bondVolume     *prometheus.CounterVec
	unbondVolume   *prometheus.CounterVec
}

var (
	coreMetricsOnce sync.Once
	coreRegistry    *CoreMetrics

	puppeteerMetricsOnce sync.Once
	puppeteerRegistry    *PuppeteerMetrics
)

// Core returns the lazily-initialised Core metrics registry.
func Core() *CoreMetrics {
	coreMetricsOnce.Do(func() {
		coreRegistry = &CoreMetrics{
			tickOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "liquidctl",
				Subsystem: "core",
				Name:      "tick_outcomes_total",
				Help:      "Count of Tick invocations segmented by resulting FSM transition.",
			}, []string{"transition"}),
			exchangeRate: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "liquidctl",
				Subsystem: "core",
				Name:      "exchange_rate",
				Help:      "Current receipt-token exchange rate (base asset per receipt token), scaled by 1e18.",
			}),
			slashingEffect: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "liquidctl",
				Subsystem: "core",
				Name:      "batch_slashing_effect",
				Help:      "Observed slashing effect ratio (scaled by 1e18) recorded per unbond batch.",
			}, []string{"batch_id"}),
			bondVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "liquidctl",
				Subsystem: "core",
				Name:      "bond_volume_total",
				Help:      "Cumulative base-asset-equivalent bond volume segmented by provider.",
			}, []string{"provider"}),
			unbondVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "liquidctl",
				Subsystem: "core",
				Name:      "unbond_volume_total",
				Help:      "Cumulative receipt-token unbond volume.",
			}, []string{"status"}),
		}
		prometheus.MustRegister(
			coreRegistry.tickOutcomes,
			coreRegistry.exchangeRate,
			coreRegistry.slashingEffect,
			coreRegistry.bondVolume,
			coreRegistry.unbondVolume,
		)
	})
	return coreRegistry
}

// RecordTick increments the tick outcome counter for the named FSM transition
// (e.g. "idle", "claiming", "transferring", "staking", "unbonding", "withdrawing").
func (m *CoreMetrics) RecordTick(transition string) {
	if m == nil {
		return
	}
	if transition = strings.TrimSpace(transition); transition == "" {
		transition = "idle"
	}
	m.tickOutcomes.WithLabelValues(transition).Inc()
}

// SetExchangeRate records the scaled exchange rate as a gauge.
func (m *CoreMetrics) SetExchangeRate(rate *big.Rat) {
	if m == nil || rate == nil {
		return
	}
	f, _ := rate.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}
	m.exchangeRate.Set(f)
}

// RecordSlashing records the observed slashing effect for a batch.
func (m *CoreMetrics) RecordSlashing(batchID string, effect *big.Rat) {
	if m == nil || effect == nil {
		return
	}
	f, _ := effect.Float64()
	m.slashingEffect.WithLabelValues(batchID).Set(f)
}

// RecordBond increments the bond volume counter for the matched provider.
func (m *CoreMetrics) RecordBond(provider string, amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	m.bondVolume.WithLabelValues(labelAsset(provider)).Add(bigToFloat(amount))
}

// RecordUnbond increments the unbond volume counter for the batch status.
func (m *CoreMetrics) RecordUnbond(status string, amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	m.unbondVolume.WithLabelValues(labelAsset(status)).Add(bigToFloat(amount))
}

// PuppeteerMetrics instruments the single-inflight ICA submission engine.
type PuppeteerMetrics struct {
	submissions *prometheus.CounterVec
	inflight    prometheus.Gauge
	latency     *prometheus.HistogramVec
}

// Puppeteer returns the lazily-initialised Puppeteer metrics registry.
func Puppeteer() *PuppeteerMetrics {
	puppeteerMetricsOnce.Do(func() {
		puppeteerRegistry = &PuppeteerMetrics{
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "liquidctl",
				Subsystem: "puppeteer",
				Name:      "submissions_total",
				Help:      "Count of ICA submissions segmented by transaction kind and outcome.",
			}, []string{"kind", "outcome"}),
			inflight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "liquidctl",
				Subsystem: "puppeteer",
				Name:      "inflight",
				Help:      "1 while a transaction is InProgress or WaitingForAck, 0 when Idle.",
			}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "liquidctl",
				Subsystem: "puppeteer",
				Name:      "ack_latency_seconds",
				Help:      "Latency between submission and a terminal ack/error/timeout.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			puppeteerRegistry.submissions,
			puppeteerRegistry.inflight,
			puppeteerRegistry.latency,
		)
	})
	return puppeteerRegistry
}

// RecordSubmission increments the submission counter for a transaction kind
// and terminal outcome ("success", "error", "timeout").
func (m *PuppeteerMetrics) RecordSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(labelAsset(kind), labelAsset(outcome)).Inc()
}

// SetInflight toggles the inflight gauge.
func (m *PuppeteerMetrics) SetInflight(inflight bool) {
	if m == nil {
		return
	}
	if inflight {
		m.inflight.Set(1)
		return
	}
	m.inflight.Set(0)
}

// ObserveAckLatency records the latency between submission and terminal callback.
func (m *PuppeteerMetrics) ObserveAckLatency(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(labelAsset(kind)).Observe(d.Seconds())
}

func labelAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}

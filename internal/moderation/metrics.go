package moderation

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the tracker's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	applied  *prometheus.CounterVec
	reversed *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	active   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		applied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_timed_restrictions_applied_total",
				Help: "Timed restrictions applied, by kind",
			},
			[]string{"kind"},
		),
		reversed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_manual_reversals_total",
				Help: "Manual reversals, by kind and result",
			},
			[]string{"kind", "result"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_waiter_outcomes_total",
				Help: "Scheduled reversal outcomes, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keeper_timed_restrictions_active",
			Help: "Timed restrictions currently tracked",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.applied, m.reversed, m.outcomes, m.active)
	}
	return m
}

func (m *Metrics) recordApply(kind Kind) {
	if m == nil {
		return
	}
	m.applied.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) recordReverse(kind Kind, result string) {
	if m == nil {
		return
	}
	m.reversed.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) recordOutcome(kind Kind, outcome Outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(kind), outcome.String()).Inc()
}

func (m *Metrics) setActive(n int) {
	if m == nil {
		return
	}
	m.active.Set(float64(n))
}

package dmn

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects evaluation metrics for Prometheus.
//
// Metrics:
//   - dmn_evaluations_total: requests by outcome ("ok" or "error")
//   - dmn_evaluation_duration_seconds: request duration
//   - dmn_node_evaluations_total: decisions and models evaluated, by logic kind
//   - dmn_rules_matched: number of matched rules per decision table evaluation
//
// A nil *Metrics records nothing.
type Metrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	nodeEvaluations    *prometheus.CounterVec
	rulesMatched       prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dmn",
				Name:      "evaluations_total",
				Help:      "Total number of graph evaluations",
			},
			[]string{"outcome"},
		),
		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "dmn",
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of graph evaluations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to 0.5s
			},
		),
		nodeEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dmn",
				Name:      "node_evaluations_total",
				Help:      "Total number of decision and knowledge model evaluations",
			},
			[]string{"kind", "logic"},
		),
		rulesMatched: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "dmn",
				Name:      "rules_matched",
				Help:      "Number of rules matched per decision table evaluation",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
		),
	}
	reg.MustRegister(m.evaluationsTotal, m.evaluationDuration, m.nodeEvaluations, m.rulesMatched)
	return m
}

func (m *Metrics) recordEvaluation(err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.evaluationsTotal.WithLabelValues(outcome).Inc()
	m.evaluationDuration.Observe(d.Seconds())
}

func (m *Metrics) recordNode(kind NodeKind, logic Logic) {
	if m == nil || logic == nil {
		return
	}
	k := "decision"
	if kind == BusinessKnowledgeModel {
		k = "bkm"
	}
	m.nodeEvaluations.WithLabelValues(k, logic.LogicKind()).Inc()
}

func (m *Metrics) recordMatches(n int) {
	if m == nil {
		return
	}
	m.rulesMatched.Observe(float64(n))
}

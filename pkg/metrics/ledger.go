package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for ledger operations.
const (
	OutcomeSuccess      = "success"
	OutcomeRejected     = "rejected"
	OutcomeInsufficient = "insufficient_balance"
	OutcomeError        = "error"
)

// LedgerMetrics tracks transfer throughput, points volume, reviews and reconciliation drift.
// A nil *LedgerMetrics is a valid no-op recorder.
type LedgerMetrics struct {
	operations     *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	pointsMoved    *prometheus.CounterVec
	reviews        *prometheus.CounterVec
	reconcileDrift *prometheus.CounterVec
	reconciled     prometheus.Gauge
}

// NewLedgerMetrics registers the ledger collectors on reg. A nil registerer yields a no-op recorder.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	m := &LedgerMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by source type and outcome.",
		}, []string{"source_type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of ledger transactions including lock waits.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source_type"}),
		pointsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "points_total",
			Help:      "Absolute points written to the ledger by identity and direction.",
		}, []string{"identity", "direction"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "reviews_total",
			Help:      "Review attempts by outcome.",
		}, []string{"outcome"}),
		reconcileDrift: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "reconcile_mismatches_total",
			Help:      "Accounts whose total_points disagreed with the ledger sum.",
		}, []string{"identity"}),
		reconciled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "reconcile_accounts_checked",
			Help:      "Accounts checked by the last reconciliation run.",
		}),
	}
	reg.MustRegister(m.operations, m.duration, m.pointsMoved, m.reviews, m.reconcileDrift, m.reconciled)
	return m
}

// ObserveOperation records one ledger transaction attempt.
func (m *LedgerMetrics) ObserveOperation(sourceType, outcome string, elapsed time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	sourceType = normalizeLabel(sourceType)
	m.operations.WithLabelValues(sourceType, outcome).Inc()
	m.duration.WithLabelValues(sourceType).Observe(elapsed.Seconds())
}

// AddPoints records the magnitude of a balance change.
func (m *LedgerMetrics) AddPoints(identity string, change int64) {
	if m == nil || m.pointsMoved == nil || change == 0 {
		return
	}
	direction := "credit"
	if change < 0 {
		direction = "debit"
		change = -change
	}
	m.pointsMoved.WithLabelValues(normalizeLabel(identity), direction).Add(float64(change))
}

// IncReview records a review attempt outcome.
func (m *LedgerMetrics) IncReview(outcome string) {
	if m == nil || m.reviews == nil {
		return
	}
	m.reviews.WithLabelValues(outcome).Inc()
}

// IncReconcileMismatch counts an account that failed reconciliation.
func (m *LedgerMetrics) IncReconcileMismatch(identity string) {
	if m == nil || m.reconcileDrift == nil {
		return
	}
	m.reconcileDrift.WithLabelValues(normalizeLabel(identity)).Inc()
}

// SetReconciledAccounts publishes how many accounts the last reconciliation inspected.
func (m *LedgerMetrics) SetReconciledAccounts(n int) {
	if m == nil || m.reconciled == nil {
		return
	}
	m.reconciled.Set(float64(n))
}

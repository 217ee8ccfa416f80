package tenancy

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/warp/tenancy-engine/compliance"
)

type Metrics struct {
	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	NoticesIssued      *prometheus.CounterVec
	NoticesRejected    *prometheus.CounterVec
	PaymentsRecorded   prometheus.Counter
	TenantsByTier      *prometheus.GaugeVec
}

// NewMetrics registers the service metrics on reg. Pass a fresh registry
// in tests; prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tenancy_status_evaluations_total",
			Help: "Total number of tenant status evaluations by severity tier",
		}, []string{"tier"}),
		EvaluationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tenancy_status_evaluation_duration_seconds",
			Help:    "Duration of tenant status evaluations including the store read",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
		NoticesIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tenancy_notices_issued_total",
			Help: "Total number of notices recorded by type",
		}, []string{"type"}),
		NoticesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tenancy_notices_rejected_total",
			Help: "Total number of notices refused by reason",
		}, []string{"reason"}),
		PaymentsRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "tenancy_payments_recorded_total",
			Help: "Total number of payments recorded",
		}),
		TenantsByTier: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tenancy_tenants_by_tier",
			Help: "Tenants per severity tier at the last status sweep",
		}, []string{"tier"}),
	}
}

func (m *Metrics) ObserveEvaluation(tier compliance.Tier, start time.Time) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(tierLabel(tier)).Inc()
	m.EvaluationDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementNoticeIssued(noticeType string) {
	if m == nil {
		return
	}
	m.NoticesIssued.WithLabelValues(noticeType).Inc()
}

func (m *Metrics) IncrementNoticeRejected(reason string) {
	if m == nil {
		return
	}
	m.NoticesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementPaymentRecorded() {
	if m == nil {
		return
	}
	m.PaymentsRecorded.Inc()
}

// SetTierCounts replaces the per-tier gauge. Tiers absent from counts are
// set to zero.
func (m *Metrics) SetTierCounts(counts map[compliance.Tier]int) {
	if m == nil {
		return
	}
	for tier := compliance.TierClear; tier <= compliance.TierTermination; tier++ {
		m.TenantsByTier.WithLabelValues(tierLabel(tier)).Set(float64(counts[tier]))
	}
}

func tierLabel(t compliance.Tier) string {
	return strconv.Itoa(int(t))
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LeadMetrics exposes counters/histograms for the lead submission pipeline.
type LeadMetrics struct {
	submissionsTotal *prometheus.CounterVec
	dispatchTotal    *prometheus.CounterVec
	rateLimitedTotal prometheus.Counter
	latency          *prometheus.HistogramVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astroliana",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Lead submissions by kind and terminal outcome",
		}, []string{"kind", "outcome"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astroliana",
			Subsystem: "leads",
			Name:      "dispatch_total",
			Help:      "Side-effect dispatches by step and status",
		}, []string{"step", "status"}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "astroliana",
			Subsystem: "leads",
			Name:      "rate_limited_total",
			Help:      "Submissions rejected by the rate limiter",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "astroliana",
			Subsystem: "leads",
			Name:      "request_duration_seconds",
			Help:      "Latency of lead submission processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.dispatchTotal, m.rateLimitedTotal, m.latency)
	return m
}

func (m *LeadMetrics) ObserveSubmission(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(kind, outcome).Inc()
	m.latency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *LeadMetrics) ObserveDispatch(step string, ok bool) {
	if m == nil {
		return
	}
	status := "failed"
	if ok {
		status = "ok"
	}
	m.dispatchTotal.WithLabelValues(step, status).Inc()
}

func (m *LeadMetrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}

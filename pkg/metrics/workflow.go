package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ClaimOutcomeClaimed  = "claimed"
	ClaimOutcomeRaceLost = "race_lost"
	ClaimOutcomeNotFound = "not_found"

	ClaimMethodProperty = "property"
	ClaimMethodPIN      = "pin"
)

// WorkflowMetrics counts job claims, change submissions and reviews.
type WorkflowMetrics struct {
	claims      *prometheus.CounterVec
	submissions prometheus.Counter
	reviews     *prometheus.CounterVec
	expired     prometheus.Counter
}

func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "housebook_job_claims_total",
		Help: "Job claim attempts by method and outcome.",
	}, []string{"method", "outcome"})
	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "housebook_change_requests_submitted_total",
		Help: "Change requests submitted by tradespeople.",
	})
	reviews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "housebook_change_requests_reviewed_total",
		Help: "Owner reviews by resulting status.",
	}, []string{"status"})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "housebook_jobs_expired_total",
		Help: "Pending jobs expired by the sweep.",
	})
	reg.MustRegister(claims, submissions, reviews, expired)
	return &WorkflowMetrics{
		claims:      claims,
		submissions: submissions,
		reviews:     reviews,
		expired:     expired,
	}
}

func (w *WorkflowMetrics) ObserveClaim(method, outcome string) {
	if w == nil || w.claims == nil {
		return
	}
	w.claims.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

func (w *WorkflowMetrics) IncSubmitted() {
	if w == nil || w.submissions == nil {
		return
	}
	w.submissions.Inc()
}

func (w *WorkflowMetrics) ObserveReview(status string) {
	if w == nil || w.reviews == nil {
		return
	}
	w.reviews.WithLabelValues(normalizeLabel(status)).Inc()
}

func (w *WorkflowMetrics) AddExpired(n int64) {
	if w == nil || w.expired == nil || n <= 0 {
		return
	}
	w.expired.Add(float64(n))
}

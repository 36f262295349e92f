package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/housebook/housebook-backend/pkg/enums"
)

func TestWorkflowMetricsCountsClaimsAndReviews(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkflowMetrics(reg)
	m.ObserveClaim(ClaimMethodPIN, ClaimOutcomeClaimed)
	m.ObserveClaim(ClaimMethodPIN, ClaimOutcomeRaceLost)
	m.ObserveClaim(ClaimMethodProperty, ClaimOutcomeRaceLost)
	m.ObserveReview("accepted")
	m.IncSubmitted()
	m.AddExpired(3)
	m.AddExpired(0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := sumCounter(mfs, "housebook_job_claims_total", map[string]string{"outcome": ClaimOutcomeRaceLost}); got != 2 {
		t.Fatalf("expected 2 lost races, got %f", got)
	}
	if got := sumCounter(mfs, "housebook_job_claims_total", map[string]string{"method": ClaimMethodPIN, "outcome": ClaimOutcomeClaimed}); got != 1 {
		t.Fatalf("expected 1 pin claim, got %f", got)
	}
	if got := sumCounter(mfs, "housebook_change_requests_reviewed_total", map[string]string{"status": "accepted"}); got != 1 {
		t.Fatalf("expected 1 accepted review, got %f", got)
	}
	if got := sumCounter(mfs, "housebook_jobs_expired_total", nil); got != 3 {
		t.Fatalf("expected 3 expired, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var w *WorkflowMetrics
	w.ObserveClaim("pin", "claimed")
	w.IncSubmitted()
	var h *HTTPMetrics
	h.Observe(http.MethodGet, "/x", 200, time.Millisecond)
	var o *OutboxMetrics
	o.Observe(enums.EventJobClaimed, OutboxOutcomePublished)
	NewWorkflowMetrics(nil).ObserveReview("declined")
}

func TestHTTPAndOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTPMetrics(reg)
	o := NewOutboxMetrics(reg)
	h.Observe(http.MethodPost, "/api/v1/tradie/jobs/claim", http.StatusConflict, 10*time.Millisecond)
	o.Observe(enums.EventJobClaimed, OutboxOutcomeTerminal)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := sumCounter(mfs, "housebook_http_requests_total", map[string]string{"status": "409", "route": "/api/v1/tradie/jobs/claim"}); got != 1 {
		t.Fatalf("expected one 409, got %f", got)
	}
	if got := sumCounter(mfs, "housebook_outbox_events_total", map[string]string{"event_type": "job_claimed", "outcome": OutboxOutcomeTerminal}); got != 1 {
		t.Fatalf("expected one terminal event, got %f", got)
	}
}

func sumCounter(mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0
	}
	var total float64
	for _, metric := range mf.GetMetric() {
		ok := true
		for k, v := range labels {
			if !matchesLabel(metric.GetLabel(), k, v) {
				ok = false
				break
			}
		}
		if ok {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

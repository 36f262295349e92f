package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/housebook/housebook-backend/pkg/enums"
)

const (
	OutboxOutcomePublished = "published"
	OutboxOutcomeRetry     = "retry"
	OutboxOutcomeTerminal  = "terminal"
)

// OutboxMetrics counts publisher outcomes per event type.
type OutboxMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "housebook_outbox_events_total",
		Help: "Outbox publish outcomes by event type.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(outcomes)
	return &OutboxMetrics{outcomes: outcomes}
}

func (o *OutboxMetrics) Observe(eventType enums.OutboxEventType, outcome string) {
	if o == nil || o.outcomes == nil {
		return
	}
	o.outcomes.WithLabelValues(normalizeLabel(string(eventType)), outcome).Inc()
}

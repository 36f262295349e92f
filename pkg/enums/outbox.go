package enums

import "slices"

// OutboxAggregateType names the entity an event is about. Mirrors the
// aggregate_type_enum column type.
type OutboxAggregateType string

const (
	AggregateJob       OutboxAggregateType = "job"
	AggregateChangeLog OutboxAggregateType = "change_log"
)

var aggregateTypes = []OutboxAggregateType{AggregateJob, AggregateChangeLog}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", aggregateTypes, value)
}

// OutboxEventType mirrors event_type_enum. Adding a value needs a migration
// and a registry entry in the publisher.
type OutboxEventType string

const (
	EventJobCreated             OutboxEventType = "job_created"
	EventJobClaimed             OutboxEventType = "job_claimed"
	EventJobExpired             OutboxEventType = "job_expired"
	EventChangeRequestSubmitted OutboxEventType = "change_request_submitted"
	EventChangeRequestReviewed  OutboxEventType = "change_request_reviewed"
	EventChangeRequestCancelled OutboxEventType = "change_request_cancelled"
	EventHistoryRecorded        OutboxEventType = "history_recorded"
)

var eventTypes = []OutboxEventType{
	EventJobCreated,
	EventJobClaimed,
	EventJobExpired,
	EventChangeRequestSubmitted,
	EventChangeRequestReviewed,
	EventChangeRequestCancelled,
	EventHistoryRecorded,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

// OutboxEventTypes lists every known event type.
func OutboxEventTypes() []OutboxEventType { return slices.Clone(eventTypes) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", eventTypes, value)
}

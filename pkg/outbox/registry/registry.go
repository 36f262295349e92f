// Package registry maps outbox event types to their topic and payload shape
// and decodes stored rows before they are published.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/db/models"
	"github.com/housebook/housebook-backend/pkg/enums"
	"github.com/housebook/housebook-backend/pkg/outbox"
	"github.com/housebook/housebook-backend/pkg/outbox/payloads"
)

// Highest envelope version this build can decode.
const maxEnvelopeVersion = 1

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a row that passed every check and is ready to send.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{
		EventType:      eventType,
		AggregateType:  aggregate,
		PayloadFactory: func() any { return new(T) },
	}
}

var catalog = []EventDescriptor{
	describe[payloads.JobCreatedEvent](enums.EventJobCreated, enums.AggregateJob),
	describe[payloads.JobClaimedEvent](enums.EventJobClaimed, enums.AggregateJob),
	describe[payloads.JobExpiredEvent](enums.EventJobExpired, enums.AggregateJob),
	describe[payloads.ChangeRequestSubmittedEvent](enums.EventChangeRequestSubmitted, enums.AggregateChangeLog),
	describe[payloads.ChangeRequestReviewedEvent](enums.EventChangeRequestReviewed, enums.AggregateChangeLog),
	describe[payloads.ChangeRequestCancelledEvent](enums.EventChangeRequestCancelled, enums.AggregateChangeLog),
	describe[payloads.HistoryRecordedEvent](enums.EventHistoryRecorded, enums.AggregateChangeLog),
}

// NewEventRegistry routes every workflow event to the events topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.EventsTopic)
	if topic == "" {
		return nil, errors.New("events topic is required")
	}
	entries := make(map[enums.OutboxEventType]EventDescriptor, len(catalog))
	for _, desc := range catalog {
		desc.Topic = topic
		entries[desc.EventType] = desc
	}
	return &EventRegistry{entries: entries}, nil
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable: the row will not change on its own.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.descriptorFor(row)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	envelope, payload, err := decode(row, desc)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func (r *EventRegistry) descriptorFor(row models.OutboxEvent) (EventDescriptor, error) {
	desc, ok := r.entries[row.EventType]
	switch {
	case !ok:
		return EventDescriptor{}, fmt.Errorf("unsupported event type %s", row.EventType)
	case desc.AggregateType != row.AggregateType:
		return EventDescriptor{}, fmt.Errorf("%s belongs to %s, row says %s", row.EventType, desc.AggregateType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return EventDescriptor{}, errors.New("missing aggregate_id")
	}
	return desc, nil
}

func decode(row models.OutboxEvent, desc EventDescriptor) (outbox.PayloadEnvelope, any, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return envelope, nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Version > maxEnvelopeVersion {
		return envelope, nil, fmt.Errorf("envelope version %d not supported", envelope.Version)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return envelope, nil, fmt.Errorf("payload missing for %s", row.EventType)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(data, payload); err != nil {
		return envelope, nil, fmt.Errorf("decode %s payload: %w", row.EventType, err)
	}
	return envelope, payload, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/db/models"
	"github.com/housebook/housebook-backend/pkg/enums"
	"github.com/housebook/housebook-backend/pkg/logger"
	"github.com/housebook/housebook-backend/pkg/metrics"
	"github.com/housebook/housebook-backend/pkg/outbox"
	"github.com/housebook/housebook-backend/pkg/outbox/registry"
)

func TestDrainRetriesOneRowAndPublishesTheNext(t *testing.T) {
	store := &memStore{rows: []models.OutboxEvent{claimRow(t, 0), claimRow(t, 0)}}
	sink := &scriptedSink{errs: []error{errors.New("unavailable")}}
	relay := newRelay(t, store, sink, stubResolver{}, 5, nil)

	handled, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, handled)
	assert.Equal(t, []uuid.UUID{store.rows[0].ID}, store.failed)
	assert.Equal(t, []uuid.UUID{store.rows[1].ID}, store.published)
	assert.Empty(t, store.parked)
}

func TestDrainEmptyBatch(t *testing.T) {
	relay := newRelay(t, &memStore{}, &scriptedSink{}, stubResolver{}, 5, nil)
	handled, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, handled)
}

func TestDeliverSetsAttributes(t *testing.T) {
	row := claimRow(t, 0)
	sink := &scriptedSink{}
	relay := newRelay(t, &memStore{rows: []models.OutboxEvent{row}}, sink, stubResolver{}, 5, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.sent, 1)
	assert.Equal(t, "workflow-events", sink.topics[0])
	attrs := sink.sent[0].Attributes
	assert.Equal(t, string(enums.EventJobClaimed), attrs["event_type"])
	assert.Equal(t, string(enums.AggregateJob), attrs["aggregate_type"])
	assert.Equal(t, row.AggregateID.String(), attrs["aggregate_id"])
	assert.Equal(t, row.ID.String(), attrs["event_id"])
	assert.JSONEq(t, string(row.Payload), string(sink.sent[0].Data))
}

func TestUnresolvableRowIsParked(t *testing.T) {
	row := claimRow(t, 0)
	store := &memStore{rows: []models.OutboxEvent{row}}
	sink := &scriptedSink{}
	resolver := stubResolver{err: registry.NewNonRetryableError(errors.New("bad payload"))}
	relay := newRelay(t, store, sink, resolver, 4, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sink.sent)
	require.Len(t, store.parked, 1)
	assert.Equal(t, row.ID, store.parked[0].id)
	assert.Equal(t, 4, store.parked[0].attempts)
}

func TestNonRetryableSendIsParked(t *testing.T) {
	store := &memStore{rows: []models.OutboxEvent{claimRow(t, 0)}}
	sink := &scriptedSink{errs: []error{registry.NewNonRetryableError(errors.New("no topic"))}}
	relay := newRelay(t, store, sink, stubResolver{}, 5, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Len(t, store.parked, 1)
	assert.Empty(t, store.failed)
}

func TestLastAttemptIsParkedAndCounted(t *testing.T) {
	store := &memStore{rows: []models.OutboxEvent{claimRow(t, 1)}}
	sink := &scriptedSink{errs: []error{errors.New("unavailable")}}
	reg := prometheus.NewRegistry()
	relay := newRelay(t, store, sink, stubResolver{}, 2, metrics.NewOutboxMetrics(reg))

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, store.parked, 1)
	assert.Empty(t, store.failed)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 1)
	require.Len(t, mfs[0].GetMetric(), 1)
	var outcome string
	for _, l := range mfs[0].GetMetric()[0].GetLabel() {
		if l.GetName() == "outcome" {
			outcome = l.GetValue()
		}
	}
	assert.Equal(t, metrics.OutboxOutcomeTerminal, outcome)
}

func TestBookkeepingFailureAbortsBatch(t *testing.T) {
	store := &memStore{rows: []models.OutboxEvent{claimRow(t, 0), claimRow(t, 0)}, markErr: errors.New("db gone")}
	sink := &scriptedSink{}
	relay := newRelay(t, store, sink, stubResolver{}, 5, nil)

	_, err := relay.drain(context.Background())
	require.Error(t, err)
	assert.Len(t, sink.sent, 1)
}

func TestRunStopsWhenSinkIsNotReady(t *testing.T) {
	relay := newRelay(t, &memStore{}, &scriptedSink{pingErr: errors.New("down")}, stubResolver{}, 5, nil)
	err := relay.Run(context.Background())
	require.ErrorContains(t, err, "pubsub not ready")
}

func TestRunReturnsOnCancel(t *testing.T) {
	relay := newRelay(t, &memStore{}, &scriptedSink{}, stubResolver{}, 5, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := relay.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRelayReportsMissingDependencies(t *testing.T) {
	_, err := NewRelay(RelayParams{})
	require.ErrorContains(t, err, "logger")
}

func TestJitteredStaysInWindow(t *testing.T) {
	for range 50 {
		got := jittered(time.Second)
		assert.GreaterOrEqual(t, got, time.Second)
		assert.Less(t, got, time.Second+jitterWindow)
	}
}

func newRelay(t *testing.T, store eventStore, s sink, resolver eventResolver, maxAttempts int, m *metrics.OutboxMetrics) *Relay {
	t.Helper()
	relay, err := NewRelay(RelayParams{
		Outbox:   config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: maxAttempts},
		Logger:   logger.New(logger.Options{ServiceName: "outbox-relay-test", Output: io.Discard}),
		DB:       noTxDB{},
		Store:    store,
		Resolver: resolver,
		Sink:     s,
		Metrics:  m,
	})
	require.NoError(t, err)
	return relay
}

func claimRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"jobId":"x"}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventJobClaimed,
		AggregateType: enums.AggregateJob,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

type noTxDB struct{}

func (noTxDB) Ping(context.Context) error { return nil }

func (noTxDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type parkedRow struct {
	id       uuid.UUID
	attempts int
}

type memStore struct {
	rows      []models.OutboxEvent
	markErr   error
	published []uuid.UUID
	failed    []uuid.UUID
	parked    []parkedRow
}

func (m *memStore) FetchUnpublishedForPublish(_ *gorm.DB, _, _ int) ([]models.OutboxEvent, error) {
	return m.rows, nil
}

func (m *memStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.published = append(m.published, id)
	return nil
}

func (m *memStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.failed = append(m.failed, id)
	return nil
}

func (m *memStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, attempts int) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.parked = append(m.parked, parkedRow{id: id, attempts: attempts})
	return nil
}

type stubResolver struct {
	err error
}

func (s stubResolver) Resolve(row models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     row.EventType,
			AggregateType: row.AggregateType,
			Topic:         "workflow-events",
		},
		Envelope: outbox.PayloadEnvelope{EventID: row.ID.String(), OccurredAt: row.CreatedAt},
	}, nil
}

// scriptedSink returns errs in order, then succeeds.
type scriptedSink struct {
	pingErr error
	errs    []error
	sent    []*gcppubsub.Message
	topics  []string
}

func (s *scriptedSink) Ping(context.Context) error { return s.pingErr }

func (s *scriptedSink) Send(_ context.Context, topic string, msg *gcppubsub.Message) (string, error) {
	s.sent = append(s.sent, msg)
	s.topics = append(s.topics, topic)
	if len(s.errs) == 0 {
		return "msg-id", nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return "", err
}

package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/db/models"
	"github.com/housebook/housebook-backend/pkg/logger"
	"github.com/housebook/housebook-backend/pkg/metrics"
	"github.com/housebook/housebook-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	idleCeiling    = 10 * time.Second
	jitterWindow   = 250 * time.Millisecond
)

type txRunner interface {
	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type eventResolver interface {
	Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// sink delivers one message to a topic and blocks until the broker acks it.
type sink interface {
	Ping(ctx context.Context) error
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) (string, error)
}

// verdict is what happened to a single outbox row.
type verdict int

const (
	verdictPublished verdict = iota
	verdictRetry
	verdictParked
)

func (v verdict) outcome() string {
	switch v {
	case verdictPublished:
		return metrics.OutboxOutcomePublished
	case verdictRetry:
		return metrics.OutboxOutcomeRetry
	default:
		return metrics.OutboxOutcomeTerminal
	}
}

type RelayParams struct {
	Outbox   config.OutboxConfig
	Logger   *logger.Logger
	DB       txRunner
	Store    eventStore
	Resolver eventResolver
	Sink     sink
	Metrics  *metrics.OutboxMetrics
}

// Relay drains outbox_events to Pub/Sub. Rows are locked per batch so several
// relays can share a database.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	store       eventStore
	resolver    eventResolver
	sink        sink
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	var missing []string
	if p.Logger == nil {
		missing = append(missing, "logger")
	}
	if p.DB == nil {
		missing = append(missing, "db")
	}
	if p.Store == nil {
		missing = append(missing, "store")
	}
	if p.Resolver == nil {
		missing = append(missing, "resolver")
	}
	if p.Sink == nil {
		missing = append(missing, "sink")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("outbox relay missing %v", missing)
	}

	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		store:       p.Store,
		resolver:    p.Resolver,
		sink:        p.Sink,
		metrics:     p.Metrics,
		batchSize:   p.Outbox.BatchSize,
		maxAttempts: p.Outbox.MaxAttempts,
		poll:        p.Outbox.PollInterval(),
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 10
	}
	return r, nil
}

// Run polls until ctx ends. A full batch is followed immediately by another;
// errors back off exponentially up to idleCeiling.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if err := r.sink.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub not ready: %w", err)
	}

	delay := r.poll
	for ctx.Err() == nil {
		handled, err := r.drain(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox drain failed", err)
			delay = min(delay*2, idleCeiling)
		case handled > 0:
			delay = r.poll
			continue
		default:
			delay = r.poll
		}
		if err := pause(ctx, jittered(delay)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// drain handles one locked batch and reports how many rows it touched.
func (r *Relay) drain(ctx context.Context) (int, error) {
	handled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		for _, row := range rows {
			v, err := r.deliver(ctx, tx, row)
			if err != nil {
				return err
			}
			r.metrics.Observe(row.EventType, v.outcome())
			handled++
		}
		return nil
	})
	return handled, err
}

// deliver publishes one row and records the result on it. The returned error
// is only ever a bookkeeping failure, which aborts the batch.
func (r *Relay) deliver(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (verdict, error) {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	})

	resolved, err := r.resolver.Resolve(row)
	if err != nil {
		return r.park(ctx, tx, row, "non_retryable", err)
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"event_id": resolved.Envelope.EventID,
		"topic":    resolved.Descriptor.Topic,
	})

	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	_, err = r.sink.Send(sendCtx, resolved.Descriptor.Topic, message(row, resolved))
	cancel()

	switch {
	case err == nil:
		if markErr := r.store.MarkPublishedTx(tx, row.ID); markErr != nil {
			return 0, fmt.Errorf("mark published %s: %w", row.ID, markErr)
		}
		r.logg.Info(ctx, "outbox event published")
		return verdictPublished, nil
	case registry.IsNonRetryable(err):
		return r.park(ctx, tx, row, "non_retryable", err)
	case row.AttemptCount+1 >= r.maxAttempts:
		return r.park(ctx, tx, row, "max_attempts", err)
	}

	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "outbox publish failed, will retry")
	if markErr := r.store.MarkFailedTx(tx, row.ID, err); markErr != nil {
		return 0, fmt.Errorf("mark failed %s: %w", row.ID, markErr)
	}
	return verdictRetry, nil
}

// park pins the row at the attempt ceiling; it stays in outbox_events with
// last_error set and is never fetched again.
func (r *Relay) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason string, cause error) (verdict, error) {
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error":        cause.Error(),
		"error_reason": reason,
	}), "outbox event parked")
	if err := r.store.MarkTerminalTx(tx, row.ID, fmt.Errorf("%s: %w", reason, cause), r.maxAttempts); err != nil {
		return 0, fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return verdictParked, nil
}

func message(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func jittered(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}

package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/housebook/housebook-backend/pkg/logger"
)

const (
	jobExpiryName       = "job-expiry"
	outboxRetentionName = "outbox-retention"

	defaultOutboxRetention = 30 * 24 * time.Hour
)

// task adapts a closure to Job.
type task struct {
	name string
	run  func(ctx context.Context) error
}

func (t task) Name() string                  { return t.name }
func (t task) Run(ctx context.Context) error { return t.run(ctx) }

type jobExpirer interface {
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

type JobExpiryJobParams struct {
	Logger *logger.Logger
	Jobs   jobExpirer
	Now    func() time.Time
}

// NewJobExpiryJob expires pending jobs nobody claimed within the claim TTL.
func NewJobExpiryJob(params JobExpiryJobParams) (Job, error) {
	if params.Logger == nil || params.Jobs == nil {
		return nil, errors.New("job expiry needs a logger and the job service")
	}
	now := clock(params.Now)
	return task{name: jobExpiryName, run: func(ctx context.Context) error {
		n, err := params.Jobs.ExpirePending(ctx, now())
		if err != nil {
			return fmt.Errorf("expire pending jobs: %w", err)
		}
		params.Logger.Info(params.Logger.WithField(ctx, "jobs_expired", n), "pending job expiry complete")
		return nil
	}}, nil
}

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxPruner
	Retention  time.Duration
	Now        func() time.Time
}

// NewOutboxRetentionJob deletes published outbox rows older than Retention,
// 30 days when unset. Unpublished and parked rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil || params.Repository == nil {
		return nil, errors.New("outbox retention needs a logger and the outbox repository")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	now := clock(params.Now)
	return task{name: outboxRetentionName, run: func(ctx context.Context) error {
		cutoff := now().Add(-retention)
		n, err := params.Repository.DeletePublishedBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("prune outbox: %w", err)
		}
		params.Logger.Info(params.Logger.WithFields(ctx, map[string]any{
			"cutoff":       cutoff,
			"rows_deleted": n,
		}), "outbox retention cleanup complete")
		return nil
	}}, nil
}

func clock(now func() time.Time) func() time.Time {
	if now == nil {
		now = time.Now
	}
	return func() time.Time { return now().UTC() }
}

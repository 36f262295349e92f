package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/testdb"
	"github.com/housebook/housebook-backend/pkg/db/models"
	"github.com/housebook/housebook-backend/pkg/enums"
	"github.com/housebook/housebook-backend/pkg/outbox"
	"github.com/housebook/housebook-backend/pkg/outbox/payloads"
)

func emitJobExpired(t *testing.T, conn *gorm.DB, svc *outbox.Service, jobID uuid.UUID) {
	t.Helper()
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventJobExpired,
			AggregateType: enums.AggregateJob,
			AggregateID:   jobID,
			Data:          payloads.JobExpiredEvent{JobID: jobID},
		})
	}))
}

func TestEmitWritesEnvelopeKeyedByRowID(t *testing.T) {
	conn := testdb.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)
	jobID := uuid.New()

	emitJobExpired(t, conn, svc, jobID)

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	assert.Equal(t, jobID, row.AggregateID)
	assert.Equal(t, enums.EventJobExpired, row.EventType)

	var env outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &env))
	assert.Equal(t, row.ID.String(), env.EventID)
	assert.Equal(t, 1, env.Version)
	assert.False(t, env.OccurredAt.IsZero())
	assert.Contains(t, string(env.Data), jobID.String())
}

func TestEmitRejectsBadEvents(t *testing.T) {
	conn := testdb.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	ctx := context.Background()

	assert.Error(t, svc.Emit(ctx, nil, outbox.DomainEvent{}))

	cases := map[string]outbox.DomainEvent{
		"type":         {EventType: "order_created", AggregateType: enums.AggregateJob, AggregateID: uuid.New()},
		"aggregate":    {EventType: enums.EventJobClaimed, AggregateType: "store", AggregateID: uuid.New()},
		"aggregate id": {EventType: enums.EventJobClaimed, AggregateType: enums.AggregateJob},
		"payload":      {EventType: enums.EventJobClaimed, AggregateType: enums.AggregateJob, AggregateID: uuid.New(), Data: make(chan int)},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, svc.Emit(ctx, conn, event))
		})
	}

	n, err := outbox.NewRepository(conn).CountByType(ctx, string(enums.EventJobClaimed))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayBookkeeping(t *testing.T) {
	conn := testdb.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)
	emitJobExpired(t, conn, svc, uuid.New())
	emitJobExpired(t, conn, svc, uuid.New())

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New(strings.Repeat("x", 5000))))

	pending, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Len(t, *pending[0].LastError, 1024)

	require.NoError(t, repo.MarkTerminalTx(conn, pending[0].ID, errors.New("gone"), 3))
	pending, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, repo.MarkPublishedTx(conn, uuid.New()), gorm.ErrRecordNotFound)
}

func TestDeletePublishedBefore(t *testing.T) {
	conn := testdb.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)
	ctx := context.Background()
	emitJobExpired(t, conn, svc, uuid.New())
	emitJobExpired(t, conn, svc, uuid.New())

	rows, err := repo.FetchUnpublishedForPublish(conn, 1, 10)
	require.NoError(t, err)
	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))

	deleted, err := repo.DeletePublishedBefore(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = repo.DeletePublishedBefore(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	left, err := repo.CountByType(ctx, string(enums.EventJobExpired))
	require.NoError(t, err)
	assert.EqualValues(t, 1, left)
}

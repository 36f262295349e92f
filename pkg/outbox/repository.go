package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/housebook/housebook-backend/pkg/db/models"
)

// Stored errors are cut to this many bytes.
const maxErrorText = 1024

var errTxRequired = errors.New("outbox writes need a transaction")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, row *models.OutboxEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// FetchUnpublishedForPublish claims the oldest pending rows. SKIP LOCKED lets
// several relays drain the table without picking the same row.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("published_at IS NULL").
		Where("attempt_count < ?", maxAttempts).
		Order("created_at, id").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return setFields(tx, id, map[string]any{"published_at": time.Now().UTC(), "last_error": nil})
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	return setFields(tx, id, map[string]any{
		"last_error":    errorText(cause),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// MarkTerminalTx sets attempt_count to the ceiling so the row is never
// fetched again. It stays in the table for inspection.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, ceiling int) error {
	return setFields(tx, id, map[string]any{"last_error": errorText(cause), "attempt_count": ceiling})
}

func (r *Repository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("published_at IS NOT NULL").
		Where("published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func (r *Repository) CountByType(ctx context.Context, eventType string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error
	return n, err
}

func setFields(tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	res := tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("outbox event %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	msg := err.Error()
	if len(msg) > maxErrorText {
		msg = msg[:maxErrorText]
	}
	return msg
}

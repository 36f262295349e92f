package outbox

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/pkg/logger"
)

// Emitter writes domain events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: func() time.Time { return time.Now().UTC() }}
}

// Emit refuses to run outside a transaction; an event written on its own
// could outlive a rolled back change.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if err := event.check(); err != nil {
		return err
	}
	row, err := event.toRow(s.now())
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx.WithContext(ctx), &row); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":     row.ID.String(),
			"event_type":   row.EventType,
			"aggregate_id": row.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

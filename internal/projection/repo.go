package projection

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/repo"
	"github.com/housebook/housebook-backend/pkg/db/models"
	"github.com/housebook/housebook-backend/pkg/enums"
)

// Repository reads change log rows for projections.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ChangeLogsForAsset returns every row for the asset with its author, newest first.
func (r *Repository) ChangeLogsForAsset(ctx context.Context, assetID uuid.UUID) ([]models.ChangeLog, error) {
	var rows []models.ChangeLog
	err := r.DB(ctx).
		Preload("Author").
		Where("asset_id = ?", assetID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// AcceptedForAsset returns accepted rows only, newest first.
func (r *Repository) AcceptedForAsset(ctx context.Context, assetID uuid.UUID) ([]models.ChangeLog, error) {
	var rows []models.ChangeLog
	err := r.DB(ctx).
		Preload("Author").
		Where("asset_id = ? AND status = ?", assetID, enums.ChangeLogStatusAccepted).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

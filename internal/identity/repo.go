package identity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/repo"
	"github.com/housebook/housebook-backend/pkg/db/models"
)

// Repository answers ownership questions against the property tree.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// IsPropertyOwner reports whether an ownership join row exists.
func (r *Repository) IsPropertyOwner(ctx context.Context, ownerID, propertyID uuid.UUID) (bool, error) {
	return r.Exists(ctx, &models.PropertyOwner{}, "owner_id = ? AND property_id = ?", ownerID, propertyID)
}

func (r *Repository) PropertyExists(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	return r.Exists(ctx, &models.Property{}, "id = ?", propertyID)
}

// PropertyIDForAsset walks asset → space → property. Returns
// gorm.ErrRecordNotFound when the asset does not exist.
func (r *Repository) PropertyIDForAsset(ctx context.Context, assetID uuid.UUID) (uuid.UUID, error) {
	var row struct {
		PropertyID uuid.UUID
	}
	err := r.DB(ctx).Table("assets").
		Select("spaces.property_id AS property_id").
		Joins("JOIN spaces ON spaces.id = assets.space_id").
		Where("assets.id = ?", assetID).
		Take(&row).Error
	if err != nil {
		return uuid.Nil, err
	}
	if row.PropertyID == uuid.Nil {
		return uuid.Nil, gorm.ErrRecordNotFound
	}
	return row.PropertyID, nil
}

// ListOwnedPropertyIDs returns every property the owner holds.
func (r *Repository) ListOwnedPropertyIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).Model(&models.PropertyOwner{}).
		Where("owner_id = ?", ownerID).
		Pluck("property_id", &ids).Error
	return ids, err
}

package properties

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/repo"
	"github.com/housebook/housebook-backend/pkg/db/models"
)

// Repository reads the property tree and writes catalogue rows.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// LoadTree loads a property with spaces, assets, asset types and every change
// log row with its author. Returns gorm.ErrRecordNotFound when absent.
func (r *Repository) LoadTree(ctx context.Context, propertyID uuid.UUID) (*models.Property, error) {
	var prop models.Property
	err := r.DB(ctx).
		Preload("Spaces", func(db *gorm.DB) *gorm.DB {
			return db.Order("spaces.name ASC, spaces.id ASC")
		}).
		Preload("Spaces.Assets", func(db *gorm.DB) *gorm.DB {
			return db.Order("assets.description ASC, assets.id ASC")
		}).
		Preload("Spaces.Assets.AssetType").
		Preload("Spaces.Assets.ChangeLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("change_logs.created_at DESC, change_logs.id DESC")
		}).
		Preload("Spaces.Assets.ChangeLogs.Author").
		Where("id = ?", propertyID).
		Take(&prop).Error
	if err != nil {
		return nil, err
	}
	return &prop, nil
}

// ListOwnedByUser returns the properties owned by the user's owner profile, by name.
func (r *Repository) ListOwnedByUser(ctx context.Context, userID uuid.UUID) ([]models.Property, error) {
	var rows []models.Property
	err := r.DB(ctx).
		Joins("JOIN property_owners ON property_owners.property_id = properties.id").
		Joins("JOIN owners ON owners.id = property_owners.owner_id").
		Where("owners.user_id = ?", userID).
		Order("properties.name ASC, properties.id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindSpace(ctx context.Context, id uuid.UUID) (*models.Space, error) {
	var space models.Space
	if err := r.DB(ctx).Where("id = ?", id).Take(&space).Error; err != nil {
		return nil, err
	}
	return &space, nil
}

func (r *Repository) CreateSpace(ctx context.Context, space *models.Space) error {
	return r.DB(ctx).Create(space).Error
}

func (r *Repository) CreateAsset(ctx context.Context, asset *models.Asset) error {
	return r.DB(ctx).Create(asset).Error
}

func (r *Repository) FindAssetType(ctx context.Context, id uuid.UUID) (*models.AssetType, error) {
	var at models.AssetType
	if err := r.DB(ctx).Where("id = ?", id).Take(&at).Error; err != nil {
		return nil, err
	}
	return &at, nil
}

func (r *Repository) ListAssetTypes(ctx context.Context) ([]models.AssetType, error) {
	var rows []models.AssetType
	err := r.DB(ctx).Order("name ASC, id ASC").Find(&rows).Error
	return rows, err
}

package changelog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/repo"
	"github.com/housebook/housebook-backend/pkg/db/models"
	dbtypes "github.com/housebook/housebook-backend/pkg/db/types"
	"github.com/housebook/housebook-backend/pkg/enums"
	"github.com/housebook/housebook-backend/pkg/pagination"
)

// Repository persists change log rows.
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

func (r *Repository) Insert(ctx context.Context, row *models.ChangeLog) error {
	return r.DB(ctx).Create(row).Error
}

// FindByID returns gorm.ErrRecordNotFound when the row is absent.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ChangeLog, error) {
	var row models.ChangeLog
	if err := r.DB(ctx).Preload("Author").Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// TransitionFromPending moves a pending row to status. It reports whether
// the row changed; false means the row is gone or already reviewed.
func (r *Repository) TransitionFromPending(ctx context.Context, id uuid.UUID, status enums.ChangeLogStatus) (bool, error) {
	res := r.DB(ctx).Model(&models.ChangeLog{}).
		Where("id = ? AND status = ?", id, enums.ChangeLogStatusPending).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeletePendingByAuthor removes the row only while it is pending and
// authored by userID. It reports whether a row was deleted.
func (r *Repository) DeletePendingByAuthor(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Where("id = ? AND changed_by_user_id = ? AND status = ?", id, userID, enums.ChangeLogStatusPending).
		Delete(&models.ChangeLog{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// requestRow is a change log joined with its location and author.
type requestRow struct {
	ID                uuid.UUID
	AssetID           uuid.UUID
	AssetDescription  *string
	SpaceID           uuid.UUID
	SpaceName         string
	PropertyID        uuid.UUID
	PropertyName      string
	Specifications    dbtypes.Specifications
	ChangeDescription string
	Status            enums.ChangeLogStatus
	ChangedByUserID   *uuid.UUID
	AuthorFirstName   *string
	AuthorLastName    *string
	CreatedAt         time.Time
}

func (r *Repository) requests(ctx context.Context) *gorm.DB {
	return r.DB(ctx).Table("change_logs").
		Select(`change_logs.id, change_logs.asset_id, assets.description AS asset_description,
			spaces.id AS space_id, spaces.name AS space_name,
			properties.id AS property_id, properties.name AS property_name,
			change_logs.specifications, change_logs.change_description, change_logs.status,
			change_logs.changed_by_user_id, users.first_name AS author_first_name,
			users.last_name AS author_last_name, change_logs.created_at`).
		Joins("JOIN assets ON assets.id = change_logs.asset_id").
		Joins("JOIN spaces ON spaces.id = assets.space_id").
		Joins("JOIN properties ON properties.id = spaces.property_id").
		Joins("LEFT JOIN users ON users.id = change_logs.changed_by_user_id").
		Order("change_logs.created_at DESC, change_logs.id DESC")
}

// ListPendingForProperty is the owner review queue, newest first.
func (r *Repository) ListPendingForProperty(ctx context.Context, propertyID uuid.UUID) ([]requestRow, error) {
	var rows []requestRow
	err := r.requests(ctx).
		Where("spaces.property_id = ? AND change_logs.status = ?", propertyID, enums.ChangeLogStatusPending).
		Scan(&rows).Error
	return rows, err
}

// ListByAuthor returns up to limit rows the user wrote, newest first,
// starting after the cursor row when one is given.
func (r *Repository) ListByAuthor(ctx context.Context, userID uuid.UUID, after *pagination.Cursor, limit int) ([]requestRow, error) {
	q := r.requests(ctx).Where("change_logs.changed_by_user_id = ?", userID)
	if after != nil {
		q = q.Where("(change_logs.created_at < ?) OR (change_logs.created_at = ? AND change_logs.id < ?)",
			after.CreatedAt, after.CreatedAt, after.ID)
	}
	var rows []requestRow
	err := q.Limit(limit).Scan(&rows).Error
	return rows, err
}

package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/repo"
	"github.com/housebook/housebook-backend/pkg/db/models"
)

// Repository persists users and their owner and tradie profiles.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bound(tx)}
}

// Create stores the user with a normalized email. A taken email surfaces
// as the driver's unique violation; see db.IsUniqueViolation.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	return insert(ctx, r, dto.ToModel())
}

func (r *Repository) CreateOwnerProfile(ctx context.Context, userID uuid.UUID) (*models.Owner, error) {
	return insert(ctx, r, &models.Owner{UserID: userID})
}

func (r *Repository) CreateTradieProfile(ctx context.Context, userID uuid.UUID) (*models.Tradesperson, error) {
	return insert(ctx, r, &models.Tradesperson{UserID: userID})
}

// FindByEmail expects an already normalized email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return first[models.User](ctx, r, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return first[models.User](ctx, r, "id = ?", id)
}

// FindOwnerByUserID returns nil, nil when the user holds no owner profile.
func (r *Repository) FindOwnerByUserID(ctx context.Context, userID uuid.UUID) (*models.Owner, error) {
	return optional(first[models.Owner](ctx, r, "user_id = ?", userID))
}

// FindTradieByUserID returns nil, nil when the user holds no tradie profile.
func (r *Repository) FindTradieByUserID(ctx context.Context, userID uuid.UUID) (*models.Tradesperson, error) {
	return optional(first[models.Tradesperson](ctx, r, "user_id = ?", userID))
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

func insert[T any](ctx context.Context, r *Repository, row *T) (*T, error) {
	if err := r.DB(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func first[T any](ctx context.Context, r *Repository, query string, args ...any) (*T, error) {
	var row T
	if err := r.DB(ctx).Where(query, args...).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func optional[T any](row *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return row, err
}

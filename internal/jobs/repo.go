package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/internal/repo"
	"github.com/housebook/housebook-backend/pkg/db/models"
	"github.com/housebook/housebook-backend/pkg/enums"
)

// Repository persists jobs and their asset scope.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// FindPendingByProperty returns one pending job for the property, or nil.
func (r *Repository) FindPendingByProperty(ctx context.Context, propertyID uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.DB(ctx).
		Where("property_id = ? AND status = ?", propertyID, enums.JobStatusPending).
		Order("created_at ASC").
		Take(&job).Error
	return nilIfMissing(&job, err)
}

// FindClaimableByPIN returns an unclaimed, unexpired pending job matching the PIN, or nil.
func (r *Repository) FindClaimableByPIN(ctx context.Context, propertyID uuid.UUID, pin string) (*models.Job, error) {
	var job models.Job
	err := r.DB(ctx).
		Where("property_id = ? AND pin = ? AND tradie_id IS NULL AND status = ? AND expired = ?",
			propertyID, pin, enums.JobStatusPending, false).
		Order("created_at ASC").
		Take(&job).Error
	return nilIfMissing(&job, err)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.DB(ctx).Where("id = ?", id).Take(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *Repository) PropertyExists(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Property{}).Where("id = ?", propertyID).Count(&count).Error
	return count > 0, err
}

// Claim assigns the job to tradieID only while it is still pending,
// unassigned and unexpired. It reports whether the row changed.
func (r *Repository) Claim(ctx context.Context, jobID, tradieID uuid.UUID) (bool, error) {
	res := r.DB(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ? AND tradie_id IS NULL AND expired = ?", jobID, enums.JobStatusPending, false).
		Updates(map[string]any{
			"tradie_id":  tradieID,
			"status":     enums.JobStatusAccepted,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Expire marks a still-pending job expired. It reports whether the row changed.
func (r *Repository) Expire(ctx context.Context, jobID uuid.UUID) (bool, error) {
	res := r.DB(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, enums.JobStatusPending).
		Updates(map[string]any{
			"status":     enums.JobStatusExpired,
			"expired":    true,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindStalePending lists pending jobs created before cutoff, oldest first.
func (r *Repository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Job, error) {
	var rows []models.Job
	q := r.DB(ctx).
		Where("status = ? AND created_at < ?", enums.JobStatusPending, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// Create inserts the job and its job_assets rows.
func (r *Repository) Create(ctx context.Context, job *models.Job, assetIDs []uuid.UUID) error {
	if err := r.DB(ctx).Create(job).Error; err != nil {
		return err
	}
	if len(assetIDs) == 0 {
		return nil
	}
	links := make([]models.JobAsset, 0, len(assetIDs))
	for _, id := range assetIDs {
		links = append(links, models.JobAsset{JobID: job.ID, AssetID: id})
	}
	return r.DB(ctx).Create(&links).Error
}

// AssetIDs returns the job's asset scope.
func (r *Repository) AssetIDs(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).Model(&models.JobAsset{}).Where("job_id = ?", jobID).Pluck("asset_id", &ids).Error
	return ids, err
}

// CountAssetsInProperty counts how many of assetIDs sit under the property.
func (r *Repository) CountAssetsInProperty(ctx context.Context, propertyID uuid.UUID, assetIDs []uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Table("assets").
		Joins("JOIN spaces ON spaces.id = assets.space_id").
		Where("spaces.property_id = ? AND assets.id IN ?", propertyID, assetIDs).
		Count(&count).Error
	return count, err
}

// ListActiveForTradie returns accepted, unexpired jobs held by the tradie, newest first.
func (r *Repository) ListActiveForTradie(ctx context.Context, tradieID uuid.UUID) ([]JobSummary, error) {
	var rows []struct {
		ID           uuid.UUID
		PropertyID   uuid.UUID
		PropertyName string
		Status       enums.JobStatus
		AssetCount   int64
		CreatedAt    time.Time
	}
	err := r.DB(ctx).Table("jobs").
		Select(`jobs.id, jobs.property_id, properties.name AS property_name, jobs.status, jobs.created_at,
			(SELECT COUNT(*) FROM job_assets WHERE job_assets.job_id = jobs.id) AS asset_count`).
		Joins("JOIN properties ON properties.id = jobs.property_id").
		Where("jobs.tradie_id = ? AND jobs.status = ? AND jobs.expired = ?", tradieID, enums.JobStatusAccepted, false).
		Order("jobs.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]JobSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, JobSummary{
			ID:           row.ID,
			PropertyID:   row.PropertyID,
			PropertyName: row.PropertyName,
			Status:       row.Status.API(),
			AssetCount:   row.AssetCount,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, nil
}

func nilIfMissing(job *models.Job, err error) (*models.Job, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

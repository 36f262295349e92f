package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/housebook/housebook-backend/pkg/enums"
)

// Job grants one tradesperson temporary write scope over a set of assets.
type Job struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PropertyID uuid.UUID       `gorm:"column:property_id;type:uuid;not null"`
	TradieID   *uuid.UUID      `gorm:"column:tradie_id;type:uuid"`
	PIN        string          `gorm:"column:pin;not null"`
	Status     enums.JobStatus `gorm:"column:status;type:job_status;not null"`
	Expired    bool            `gorm:"column:expired;not null;default:false"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (j *Job) BeforeCreate(*gorm.DB) error {
	assignID(&j.ID)
	return nil
}

// IsActiveFor reports whether the job is an accepted, unexpired job held by tradieID.
func (j *Job) IsActiveFor(tradieID uuid.UUID) bool {
	if j == nil || j.TradieID == nil {
		return false
	}
	return *j.TradieID == tradieID && j.Status == enums.JobStatusAccepted && !j.Expired
}

// JobAsset scopes a job to one asset. Rows are written at job creation only.
type JobAsset struct {
	JobID   uuid.UUID `gorm:"column:job_id;type:uuid;primaryKey"`
	AssetID uuid.UUID `gorm:"column:asset_id;type:uuid;primaryKey"`
}

package jobs

import (
	"time"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/pkg/db/models"
)

// JobDTO is the API shape of a job. PIN is only populated for the owner who
// created it.
type JobDTO struct {
	ID         uuid.UUID   `json:"id"`
	PropertyID uuid.UUID   `json:"property_id"`
	TradieID   *uuid.UUID  `json:"tradie_id,omitempty"`
	Status     string      `json:"status"`
	Expired    bool        `json:"expired"`
	PIN        string      `json:"pin,omitempty"`
	AssetIDs   []uuid.UUID `json:"asset_ids,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

func fromModel(job *models.Job) *JobDTO {
	return &JobDTO{
		ID:         job.ID,
		PropertyID: job.PropertyID,
		TradieID:   job.TradieID,
		Status:     job.Status.API(),
		Expired:    job.Expired,
		CreatedAt:  job.CreatedAt,
	}
}

// ClaimResult is returned to the tradie who won a claim.
type ClaimResult struct {
	Job        *JobDTO   `json:"job"`
	PropertyID uuid.UUID `json:"property_id"`
}

// JobSummary is one row of a tradie's job list.
type JobSummary struct {
	ID           uuid.UUID `json:"id"`
	PropertyID   uuid.UUID `json:"property_id"`
	PropertyName string    `json:"property_name"`
	Status       string    `json:"status"`
	AssetCount   int64     `json:"asset_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateJobInput is the owner payload for opening a job on a property.
type CreateJobInput struct {
	PropertyID uuid.UUID
	AssetIDs   []uuid.UUID
	PIN        string
}

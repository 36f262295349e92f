package payloads

import (
	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/pkg/enums"
)

// JobCreatedEvent announces a new claimable job.
type JobCreatedEvent struct {
	JobID      uuid.UUID   `json:"job_id"`
	PropertyID uuid.UUID   `json:"property_id"`
	AssetIDs   []uuid.UUID `json:"asset_ids"`
}

// ClaimMethod records how a job was claimed.
type ClaimMethod string

const (
	ClaimMethodProperty ClaimMethod = "property"
	ClaimMethodPIN      ClaimMethod = "pin"
)

// JobClaimedEvent is emitted once per job when a tradesperson wins the claim.
type JobClaimedEvent struct {
	JobID      uuid.UUID   `json:"job_id"`
	PropertyID uuid.UUID   `json:"property_id"`
	TradieID   uuid.UUID   `json:"tradie_id"`
	Method     ClaimMethod `json:"method"`
}

// JobExpiredEvent is emitted by the expiry sweep.
type JobExpiredEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	PropertyID uuid.UUID `json:"property_id"`
}

// ChangeRequestSubmittedEvent tells owners a tradie proposed a change.
type ChangeRequestSubmittedEvent struct {
	ChangeLogID uuid.UUID `json:"change_log_id"`
	AssetID     uuid.UUID `json:"asset_id"`
	JobID       uuid.UUID `json:"job_id"`
	PropertyID  uuid.UUID `json:"property_id"`
	SubmittedBy uuid.UUID `json:"submitted_by"`
}

// ChangeRequestReviewedEvent tells the tradie how the owner decided.
type ChangeRequestReviewedEvent struct {
	ChangeLogID uuid.UUID             `json:"change_log_id"`
	AssetID     uuid.UUID             `json:"asset_id"`
	PropertyID  uuid.UUID             `json:"property_id"`
	Status      enums.ChangeLogStatus `json:"status"`
	ReviewedBy  uuid.UUID             `json:"reviewed_by"`
}

// ChangeRequestCancelledEvent is emitted when a tradie withdraws a pending request.
type ChangeRequestCancelledEvent struct {
	ChangeLogID uuid.UUID `json:"change_log_id"`
	AssetID     uuid.UUID `json:"asset_id"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
}

// HistoryRecordedEvent is emitted when an owner records a specification directly.
type HistoryRecordedEvent struct {
	ChangeLogID uuid.UUID `json:"change_log_id"`
	AssetID     uuid.UUID `json:"asset_id"`
	PropertyID  uuid.UUID `json:"property_id"`
	RecordedBy  uuid.UUID `json:"recorded_by"`
}

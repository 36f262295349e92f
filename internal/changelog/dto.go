package changelog

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/pkg/db/models"
	dbtypes "github.com/housebook/housebook-backend/pkg/db/types"
)

// AddHistoryInput is an owner-authored entry. It is accepted on insert.
type AddHistoryInput struct {
	AssetID        uuid.UUID
	Description    string
	Specifications dbtypes.Specifications
}

// SubmitChangeInput is a tradie-authored entry. It waits for owner review.
type SubmitChangeInput struct {
	JobID          uuid.UUID
	AssetID        uuid.UUID
	Description    string
	Specifications dbtypes.Specifications
}

// RequestItem is one change request with where it applies and who wrote it.
type RequestItem struct {
	ID                uuid.UUID              `json:"id"`
	AssetID           uuid.UUID              `json:"asset_id"`
	AssetName         string                 `json:"asset_name"`
	SpaceID           uuid.UUID              `json:"space_id"`
	SpaceName         string                 `json:"space_name"`
	PropertyID        uuid.UUID              `json:"property_id"`
	PropertyName      string                 `json:"property_name"`
	Specifications    dbtypes.Specifications `json:"specifications"`
	ChangeDescription string                 `json:"change_description"`
	Status            string                 `json:"status"`
	ChangedByUserID   *uuid.UUID             `json:"changed_by_user_id,omitempty"`
	Author            string                 `json:"author"`
	CreatedAt         time.Time              `json:"created_at"`
}

func toRequestItems(rows []requestRow) []RequestItem {
	out := make([]RequestItem, 0, len(rows))
	for _, row := range rows {
		item := RequestItem{
			ID:                row.ID,
			AssetID:           row.AssetID,
			SpaceID:           row.SpaceID,
			SpaceName:         row.SpaceName,
			PropertyID:        row.PropertyID,
			PropertyName:      row.PropertyName,
			Specifications:    row.Specifications,
			ChangeDescription: row.ChangeDescription,
			Status:            row.Status.API(),
			ChangedByUserID:   row.ChangedByUserID,
			Author:            authorName(row.AuthorFirstName, row.AuthorLastName),
			CreatedAt:         row.CreatedAt,
		}
		if row.AssetDescription != nil {
			item.AssetName = *row.AssetDescription
		}
		if item.Specifications == nil {
			item.Specifications = dbtypes.Specifications{}
		}
		out = append(out, item)
	}
	return out
}

func authorName(first, last *string) string {
	if first == nil && last == nil {
		return models.SystemAuthor
	}
	u := models.User{}
	if first != nil {
		u.FirstName = *first
	}
	if last != nil {
		u.LastName = *last
	}
	if name := strings.TrimSpace(u.DisplayName()); name != "" {
		return name
	}
	return models.SystemAuthor
}

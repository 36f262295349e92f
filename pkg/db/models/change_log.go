package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/housebook/housebook-backend/pkg/db/types"
	"github.com/housebook/housebook-backend/pkg/enums"
)

// ChangeLog is one recorded specification snapshot for an asset. Rows are
// append-only except for the pending → accepted/declined transition.
type ChangeLog struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AssetID           uuid.UUID              `gorm:"column:asset_id;type:uuid;not null"`
	Specifications    dbtypes.Specifications `gorm:"column:specifications;type:jsonb;not null"`
	ChangeDescription string                 `gorm:"column:change_description;not null"`
	ChangedByUserID   *uuid.UUID             `gorm:"column:changed_by_user_id;type:uuid"`
	Author            *User                  `gorm:"foreignKey:ChangedByUserID"`
	Status            enums.ChangeLogStatus  `gorm:"column:status;type:change_log_status;not null"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (c *ChangeLog) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// SystemAuthor names rows whose author record is missing.
const SystemAuthor = "System"

// AuthorName returns the author's display name, or SystemAuthor when the
// user was not loaded or has been removed.
func (c *ChangeLog) AuthorName() string {
	if c == nil || c.Author == nil {
		return SystemAuthor
	}
	if name := c.Author.DisplayName(); name != "" {
		return name
	}
	return SystemAuthor
}

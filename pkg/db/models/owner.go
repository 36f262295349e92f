package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Owner is the owner-role profile of a user.
type Owner struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (o *Owner) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tradesperson is the tradie-role profile of a user. Jobs reference this id,
// not the user id.
type Tradesperson struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	BusinessName *string   `gorm:"column:business_name"`
	Trade        *string   `gorm:"column:trade"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Tradesperson) TableName() string { return "tradespeople" }

func (t *Tradesperson) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}

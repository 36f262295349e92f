package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Space is a room or area inside a property.
type Space struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PropertyID uuid.UUID `gorm:"column:property_id;type:uuid;not null"`
	Name       string    `gorm:"column:name;not null"`
	Type       *string   `gorm:"column:type"`
	Assets     []Asset   `gorm:"foreignKey:SpaceID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (s *Space) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssetType classifies assets. A nil or blank discipline rolls up as "General".
type AssetType struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	Discipline *string   `gorm:"column:discipline"`
}

func (a *AssetType) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// DisciplineOr returns the trimmed discipline or fallback when unset.
func (a *AssetType) DisciplineOr(fallback string) string {
	if a == nil || a.Discipline == nil || strings.TrimSpace(*a.Discipline) == "" {
		return fallback
	}
	return strings.TrimSpace(*a.Discipline)
}

// Asset is a physical item inside a space.
type Asset struct {
	ID          uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SpaceID     uuid.UUID   `gorm:"column:space_id;type:uuid;not null"`
	Description *string     `gorm:"column:description"`
	AssetTypeID *uuid.UUID  `gorm:"column:asset_type_id;type:uuid"`
	AssetType   *AssetType  `gorm:"foreignKey:AssetTypeID"`
	ChangeLogs  []ChangeLog `gorm:"foreignKey:AssetID"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime"`
}

func (a *Asset) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Property is the root of the property tree.
type Property struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string              `gorm:"column:name;not null"`
	Address        *string             `gorm:"column:address"`
	Description    *string             `gorm:"column:description"`
	PIN            *string             `gorm:"column:pin"`
	TotalFloorArea decimal.NullDecimal `gorm:"column:total_floor_area;type:numeric(12,2)"`
	BlockSize      decimal.NullDecimal `gorm:"column:block_size;type:numeric(12,2)"`
	ImageKey       *string             `gorm:"column:image_key"`
	Spaces         []Space             `gorm:"foreignKey:PropertyID"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Property) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// PropertyOwner is the ownership join between owners and properties.
type PropertyOwner struct {
	PropertyID uuid.UUID `gorm:"column:property_id;type:uuid;primaryKey"`
	OwnerID    uuid.UUID `gorm:"column:owner_id;type:uuid;primaryKey"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

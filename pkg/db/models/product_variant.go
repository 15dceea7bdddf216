package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductVariant is a (color, size) stock-keeping unit belonging to one
// product. Stock must never go negative; decrements happen only through the
// inventory repository's conditional update.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_variant_tuple,priority:1"`
	Color     string    `gorm:"column:color;not null;uniqueIndex:idx_variant_tuple,priority:2"`
	Size      string    `gorm:"column:size;not null;uniqueIndex:idx_variant_tuple,priority:3"`
	Stock     int       `gorm:"column:stock;not null;default:0"`
	SKU       *string   `gorm:"column:sku"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

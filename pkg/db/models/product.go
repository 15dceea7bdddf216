package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a storefront listing. Rating and ReviewCount are derived
// fields recomputed on every review mutation.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	Slug          string           `gorm:"column:slug;not null;uniqueIndex"`
	Description   string           `gorm:"column:description;not null"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	OriginalPrice *decimal.Decimal `gorm:"column:original_price;type:numeric(10,2)"`
	Images        pq.StringArray   `gorm:"column:images;type:text[]"`
	Featured      bool             `gorm:"column:featured;not null;default:false"`
	Rating        float64          `gorm:"column:rating;type:numeric(2,1);not null;default:0"`
	ReviewCount   int              `gorm:"column:review_count;not null;default:0"`
	CategoryID    uuid.UUID        `gorm:"column:category_id;type:uuid;not null"`
	Category      *Category        `gorm:"foreignKey:CategoryID"`
	Variants      []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

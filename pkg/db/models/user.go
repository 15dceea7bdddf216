package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyen/vestika-backend/pkg/enums"
)

// User represents a storefront account. PasswordHash is nil for accounts that
// only ever signed in through Google.
type User struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email            string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name             string         `gorm:"column:name;not null"`
	PasswordHash     *string        `gorm:"column:password_hash"`
	Role             enums.UserRole `gorm:"column:role;type:text;not null;default:'USER'"`
	Phone            *string        `gorm:"column:phone"`
	Address          *string        `gorm:"column:address"`
	GoogleID         *string        `gorm:"column:google_id;uniqueIndex"`
	ResetToken       *string        `gorm:"column:reset_token"`
	ResetTokenExpiry *time.Time     `gorm:"column:reset_token_expiry"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = enums.UserRoleUser
	}
	return nil
}

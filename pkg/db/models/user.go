package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/shoplane-backend/pkg/enums"
)

// User represents a registered identity. Credential and session issuance
// live in a separate service; this backend only reads identities.
type User struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string           `gorm:"type:text;not null;uniqueIndex"`
	FirstName   string           `gorm:"column:first_name;not null"`
	LastName    string           `gorm:"column:last_name;not null"`
	Phone       *string          `gorm:"column:phone"`
	Role        enums.MemberRole `gorm:"column:role;type:text;not null;default:'customer'"`
	IsActive    bool             `gorm:"column:is_active;not null;default:true"`
	LastLoginAt *time.Time       `gorm:"column:last_login_at"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/felipecardoza/agrolink-backend/pkg/enums"
)

// User represents the canonical identity entity. A user holds exactly one
// active marketplace role at a time; role switches tear down the live session.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string           `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	FirstName    string           `gorm:"column:first_name;not null"`
	LastName     string           `gorm:"column:last_name;not null"`
	Phone        *string          `gorm:"column:phone"`
	Role         enums.UserRole   `gorm:"column:role;type:user_role;not null;default:'buyer'"`
	KYCStatus    enums.KYCStatus  `gorm:"column:kyc_status;type:kyc_status;not null;default:'pending'"`
	FarmName     *string          `gorm:"column:farm_name"`
	Region       *string          `gorm:"column:region"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time       `gorm:"column:last_login_at"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

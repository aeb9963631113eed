package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
)

// User represents the canonical identity entity. Emails are stored lowercased
// and unique; the password is kept only as an argon2id hash.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash   string         `gorm:"column:password_hash;not null"`
	Role           enums.UserRole `gorm:"column:role;type:text;not null;default:'user'"`
	LastGenerateAt *time.Time     `gorm:"column:last_generate_at"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

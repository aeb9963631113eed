package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
)

// Payment records the manually confirmed transfer backing one Generate.
// Exactly one payment exists per generate; both rows are created in the same
// transaction.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	GenerateID  uuid.UUID           `gorm:"column:generate_id;type:uuid;not null;uniqueIndex"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Status      enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ConfirmedBy *uuid.UUID          `gorm:"column:confirmed_by;type:uuid"`
	ConfirmedAt *time.Time          `gorm:"column:confirmed_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}

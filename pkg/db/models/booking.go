package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/enums"
)

// Booking is a time-slot court reservation. Slots are capacity-checked at
// creation; bookings carry no refcounted inventory.
type Booking struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	CourtID      uuid.UUID         `gorm:"column:court_id;type:uuid;not null"`
	StartsAt     time.Time         `gorm:"column:starts_at;type:timestamptz;not null"`
	EndsAt       time.Time         `gorm:"column:ends_at;type:timestamptz;not null"`
	TotalCents   int               `gorm:"column:total_cents;not null"`
	DepositCents int               `gorm:"column:deposit_cents;not null;default:0"`
	Status       enums.OrderStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	PaymentID    *uuid.UUID        `gorm:"column:payment_id;type:uuid"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

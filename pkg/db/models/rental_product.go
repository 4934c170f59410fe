package models

import (
	"time"

	"github.com/google/uuid"
)

// RentalProduct is refcounted equipment stock. AvailableQty is mutated only
// through the inventory ledger and always satisfies 0 <= available <= total.
type RentalProduct struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FacilityID     uuid.UUID `gorm:"column:facility_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;type:text;not null"`
	DailyRateCents int       `gorm:"column:daily_rate_cents;not null"`
	DepositCents   int       `gorm:"column:deposit_cents;not null;default:0"`
	TotalQty       int       `gorm:"column:total_qty;not null"`
	AvailableQty   int       `gorm:"column:available_qty;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

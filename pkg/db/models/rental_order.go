package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/enums"
)

// RentalOrder is a multi-day equipment rental. Line-item stock is reserved
// when the order enters active and released when it leaves.
type RentalOrder struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	FacilityID   uuid.UUID         `gorm:"column:facility_id;type:uuid;not null"`
	StartDate    time.Time         `gorm:"column:start_date;type:date;not null"`
	EndDate      time.Time         `gorm:"column:end_date;type:date;not null"`
	TotalCents   int               `gorm:"column:total_cents;not null"`
	DepositCents int               `gorm:"column:deposit_cents;not null;default:0"`
	Status       enums.OrderStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	PaymentID    *uuid.UUID        `gorm:"column:payment_id;type:uuid"`
	Items        []RentalOrderItem `gorm:"foreignKey:RentalOrderID"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// RentalOrderItem is one product line on a rental order.
type RentalOrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RentalOrderID  uuid.UUID `gorm:"column:rental_order_id;type:uuid;not null"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	DailyRateCents int       `gorm:"column:daily_rate_cents;not null"`
	TotalCents     int       `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

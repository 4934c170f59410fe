package models

import (
	"time"

	"github.com/google/uuid"
)

// Court is a bookable time-slot resource inside a facility.
type Court struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FacilityID    uuid.UUID `gorm:"column:facility_id;type:uuid;not null"`
	Name          string    `gorm:"column:name;type:text;not null"`
	Sport         string    `gorm:"column:sport;type:text;not null"`
	HourRateCents int       `gorm:"column:hour_rate_cents;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Facility groups courts and rental products under one owner.
type Facility struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID uuid.UUID `gorm:"column:owner_user_id;type:uuid;not null"`
	Name        string    `gorm:"column:name;type:text;not null"`
	City        string    `gorm:"column:city;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

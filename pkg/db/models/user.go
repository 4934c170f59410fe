package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/enums"
)

// User is the minimal account record the order flows reference.
type User struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string           `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name      string           `gorm:"column:name;type:text;not null"`
	Role      enums.MemberRole `gorm:"column:role;type:text;not null;default:'user'"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}

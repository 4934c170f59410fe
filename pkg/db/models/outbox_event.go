package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/enums"
)

// OutboxEvent is a domain event persisted in the same transaction as the
// state change that produced it.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error;type:text"`
	PublishedAt   *time.Time                `gorm:"column:published_at;type:timestamptz"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

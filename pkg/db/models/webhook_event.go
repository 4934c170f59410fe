package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is the append-only audit row for every provider callback,
// written whether or not handling succeeded.
type WebhookEvent struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Provider    string          `gorm:"column:provider;type:text;not null"`
	EventID     string          `gorm:"column:event_id;type:text;not null"`
	EventType   string          `gorm:"column:event_type;type:text;not null"`
	Payload     json.RawMessage `gorm:"column:payload;type:jsonb"`
	Handled     bool            `gorm:"column:handled;not null;default:false"`
	HandleError *string         `gorm:"column:handle_error;type:text"`
	ReceivedAt  time.Time       `gorm:"column:received_at;type:timestamptz;default:now()"`
}

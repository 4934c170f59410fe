package notifications

import (
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
)

// Page is one cursor page of a user's notifications.
type Page struct {
	Items      []models.Notification `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// eventData is the superset of fields the domain events carry; each event
// populates the subset it defines.
type eventData struct {
	PaymentID   string          `json:"payment_id"`
	RefundID    string          `json:"refund_id"`
	OrderKind   enums.OrderKind `json:"order_kind"`
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	AmountCents int64           `json:"amount_cents"`
	Reason      string          `json:"reason"`
}

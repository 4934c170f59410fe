package refunds

import (
	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/enums"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

// CreateInput asks for a refund against a completed payment. AmountCents is
// only read for partial refunds; a full refund always reverses the whole
// charge.
type CreateInput struct {
	Actor       visibility.Actor
	PaymentID   uuid.UUID
	Type        enums.RefundType
	AmountCents int64
	Reason      string
}

// RefundIssuedEvent fans out once per issued refund.
type RefundIssuedEvent struct {
	RefundID          string           `json:"refund_id"`
	OriginalPaymentID string           `json:"original_payment_id"`
	OrderKind         enums.OrderKind  `json:"order_kind"`
	OrderID           string           `json:"order_id"`
	UserID            string           `json:"user_id"`
	RefundType        enums.RefundType `json:"refund_type"`
	AmountCents       int64            `json:"amount_cents"`
	Reason            string           `json:"reason,omitempty"`
}

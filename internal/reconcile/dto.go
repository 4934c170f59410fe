package reconcile

import (
	"github.com/courtside-app/courtside-backend/pkg/enums"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

// VerifyInput is the client-side confirmation of a checkout: the provider
// ids plus the signature the payment sheet handed back.
type VerifyInput struct {
	Actor             visibility.Actor
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
}

// PaymentConfirmedEvent fans out once per confirmed payment, regardless of
// which channel won the race.
type PaymentConfirmedEvent struct {
	PaymentID   string          `json:"payment_id"`
	OrderKind   enums.OrderKind `json:"order_kind"`
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	AmountCents int64           `json:"amount_cents"`
}

// PaymentFailedEvent fans out when a pending payment fails.
type PaymentFailedEvent struct {
	PaymentID string          `json:"payment_id"`
	OrderKind enums.OrderKind `json:"order_kind"`
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
	Reason    string          `json:"reason"`
}

type captureResult int

const (
	captureApplied captureResult = iota
	captureDuplicate
)

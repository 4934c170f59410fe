package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/enums"
)

// OrderRef is the typed correlation between a payment and the order it funds.
type OrderRef struct {
	Kind enums.OrderKind
	ID   uuid.UUID
}

// Payment tracks one gateway charge or refund. A refund is a separate row
// with a negative amount and a back-reference to the original payment.
type Payment struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	OrderKind         enums.OrderKind       `gorm:"column:order_kind;type:text;not null"`
	BookingID         *uuid.UUID            `gorm:"column:booking_id;type:uuid"`
	RentalOrderID     *uuid.UUID            `gorm:"column:rental_order_id;type:uuid"`
	AmountCents       int64                 `gorm:"column:amount_cents;not null"`
	Currency          string                `gorm:"column:currency;type:text;not null"`
	Provider          enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	ProviderOrderID   string                `gorm:"column:provider_order_id;type:text;not null"`
	ProviderPaymentID *string               `gorm:"column:provider_payment_id;type:text"`
	ProviderSignature *string               `gorm:"column:provider_signature;type:text"`
	Status            enums.PaymentStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	RefundType        *enums.RefundType     `gorm:"column:refund_type;type:text"`
	OriginalPaymentID *uuid.UUID            `gorm:"column:original_payment_id;type:uuid"`
	FailureReason     *string               `gorm:"column:failure_reason;type:text"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderRef returns the typed order correlation for this payment.
func (p *Payment) OrderRef() (OrderRef, bool) {
	switch p.OrderKind {
	case enums.OrderKindBooking:
		if p.BookingID != nil {
			return OrderRef{Kind: enums.OrderKindBooking, ID: *p.BookingID}, true
		}
	case enums.OrderKindRental:
		if p.RentalOrderID != nil {
			return OrderRef{Kind: enums.OrderKindRental, ID: *p.RentalOrderID}, true
		}
	}
	return OrderRef{}, false
}

// IsRefund reports whether this record reverses an earlier payment.
func (p *Payment) IsRefund() bool {
	return p.OriginalPaymentID != nil
}

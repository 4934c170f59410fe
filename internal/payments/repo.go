package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
)

// Repository persists payment records. Every status change is a conditional
// single-statement update so the two reconciliation channels cannot both
// claim the same pending payment.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByProviderOrderID(ctx context.Context, provider enums.PaymentProvider, providerOrderID string) (*models.Payment, error)
	FindPendingByOrder(ctx context.Context, ref models.OrderRef) (*models.Payment, error)
	MarkCompletedIf(ctx context.Context, id uuid.UUID, providerPaymentID, providerSignature string) (bool, error)
	MarkFailedIf(ctx context.Context, id uuid.UUID, reason string, attemptedPaymentID, attemptedSignature *string) (bool, error)
	MarkRefundedIf(ctx context.Context, id uuid.UUID) (bool, error)
	FindRefundByOriginal(ctx context.Context, originalPaymentID uuid.UUID) (*models.Payment, error)
	FindCompletedWithDraftOrders(ctx context.Context, since time.Time) ([]models.Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByProviderOrderID(ctx context.Context, provider enums.PaymentProvider, providerOrderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_order_id = ?", provider, providerOrderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindPendingByOrder(ctx context.Context, ref models.OrderRef) (*models.Payment, error) {
	query := r.db.WithContext(ctx).Where("status = ?", enums.PaymentStatusPending)
	switch ref.Kind {
	case enums.OrderKindBooking:
		query = query.Where("booking_id = ?", ref.ID)
	default:
		query = query.Where("rental_order_id = ?", ref.ID)
	}

	var payment models.Payment
	if err := query.Order("created_at DESC").First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkCompletedIf claims a pending payment. Exactly one caller wins; the
// loser sees zero rows and must re-read to distinguish duplicate from
// conflict.
func (r *repository) MarkCompletedIf(ctx context.Context, id uuid.UUID, providerPaymentID, providerSignature string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":              enums.PaymentStatusCompleted,
			"provider_payment_id": providerPaymentID,
			"provider_signature":  providerSignature,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkFailedIf fails a pending payment, recording the attempted provider
// payment id and signature so a mismatched verification leaves an audit trail.
func (r *repository) MarkFailedIf(ctx context.Context, id uuid.UUID, reason string, attemptedPaymentID, attemptedSignature *string) (bool, error) {
	updates := map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": reason,
	}
	if attemptedPaymentID != nil {
		updates["provider_payment_id"] = *attemptedPaymentID
	}
	if attemptedSignature != nil {
		updates["provider_signature"] = *attemptedSignature
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// FindCompletedWithDraftOrders returns completed payments whose order never
// left draft. These are the divergences the reconcile sweep repairs.
func (r *repository) FindCompletedWithDraftOrders(ctx context.Context, since time.Time) ([]models.Payment, error) {
	var fromBookings []models.Payment
	err := r.db.WithContext(ctx).
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("payments.status = ?", enums.PaymentStatusCompleted).
		Where("payments.original_payment_id IS NULL").
		Where("bookings.status = ?", enums.OrderStatusDraft).
		Where("payments.created_at >= ?", since).
		Find(&fromBookings).Error
	if err != nil {
		return nil, err
	}

	var fromRentals []models.Payment
	err = r.db.WithContext(ctx).
		Joins("JOIN rental_orders ON rental_orders.id = payments.rental_order_id").
		Where("payments.status = ?", enums.PaymentStatusCompleted).
		Where("payments.original_payment_id IS NULL").
		Where("rental_orders.status = ?", enums.OrderStatusDraft).
		Where("payments.created_at >= ?", since).
		Find(&fromRentals).Error
	if err != nil {
		return nil, err
	}

	return append(fromBookings, fromRentals...), nil
}

// FindRefundByOriginal returns the refund row issued against a payment, if
// any. The partial unique index on original_payment_id guarantees at most one.
func (r *repository) FindRefundByOriginal(ctx context.Context, originalPaymentID uuid.UUID) (*models.Payment, error) {
	var refund models.Payment
	err := r.db.WithContext(ctx).
		Where("original_payment_id = ?", originalPaymentID).
		First(&refund).Error
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// MarkRefundedIf flips a completed payment to refunded exactly once.
func (r *repository) MarkRefundedIf(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusCompleted).
		Updates(map[string]any{"status": enums.PaymentStatusRefunded})
	return res.RowsAffected > 0, res.Error
}

package refunds

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/internal/orders"
	"github.com/courtside-app/courtside-backend/internal/payments"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/logger"
	"github.com/courtside-app/courtside-backend/pkg/outbox"
	"github.com/courtside-app/courtside-backend/pkg/razorpay"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type gateway interface {
	CreateRefund(ctx context.Context, providerPaymentID string, amountCents int64, notes map[string]any) (*razorpay.Refund, error)
}

// Service issues refunds against completed payments. A refund is its own
// payment row with a negative amount; at most one refund exists per payment.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Payment, error)
}

type service struct {
	payments   payments.Repository
	orders     orders.Service
	ordersRepo orders.Repository
	tx         txRunner
	outbox     outboxPublisher
	gateway    gateway
	logg       *logger.Logger
}

// NewService builds the refund coordinator with the required dependencies.
func NewService(
	paymentsRepo payments.Repository,
	ordersSvc orders.Service,
	ordersRepo orders.Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	gw gateway,
	logg *logger.Logger,
) (Service, error) {
	if paymentsRepo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{
		payments:   paymentsRepo,
		orders:     ordersSvc,
		ordersRepo: ordersRepo,
		tx:         tx,
		outbox:     outboxSvc,
		gateway:    gw,
		logg:       logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Payment, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown refund type %q", input.Type))
	}

	original, err := s.payments.FindByID(ctx, input.PaymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if original.IsRefund() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot refund a refund")
	}
	ref, hasRef := original.OrderRef()
	if !hasRef {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment carries no order reference")
	}
	if err := s.ensureRefundAccess(ctx, input.Actor, original, ref); err != nil {
		return nil, err
	}

	if _, findErr := s.payments.FindRefundByOriginal(ctx, original.ID); findErr == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment already refunded")
	} else if findErr != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "check existing refund")
	}
	if original.Status != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "only completed payments can be refunded").
			WithDetails(map[string]any{"status": original.Status.String()})
	}
	if original.ProviderPaymentID == nil || *original.ProviderPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "payment has no provider capture to reverse")
	}

	amountCents, err := refundAmount(input, original)
	if err != nil {
		return nil, err
	}

	providerRefund, err := s.gateway.CreateRefund(ctx, *original.ProviderPaymentID, amountCents, map[string]any{
		"order_kind":  ref.Kind.String(),
		"order_id":    ref.ID.String(),
		"refund_type": input.Type.String(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create provider refund")
	}

	refundType := input.Type
	refund := &models.Payment{
		ID:                uuid.New(),
		UserID:            original.UserID,
		OrderKind:         original.OrderKind,
		BookingID:         original.BookingID,
		RentalOrderID:     original.RentalOrderID,
		AmountCents:       -amountCents,
		Currency:          original.Currency,
		Provider:          original.Provider,
		ProviderOrderID:   original.ProviderOrderID,
		ProviderPaymentID: &providerRefund.ID,
		Status:            enums.PaymentStatusRefunded,
		RefundType:        &refundType,
		OriginalPaymentID: &original.ID,
	}

	actor := &outbox.ActorRef{UserID: input.Actor.UserID, Role: input.Actor.Role.String()}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		if _, createErr := repo.Create(ctx, refund); createErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create refund record")
		}

		if input.Type == enums.RefundTypeFull {
			ok, markErr := repo.MarkRefundedIf(ctx, original.ID)
			if markErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, markErr, "mark payment refunded")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "payment changed concurrently")
			}
			if cancelErr := s.cancelOrderIfOpen(ctx, tx, ref, actor); cancelErr != nil {
				return cancelErr
			}
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundIssued,
			AggregateType: enums.AggregatePayment,
			AggregateID:   refund.ID,
			Version:       1,
			Actor:         actor,
			Data: RefundIssuedEvent{
				RefundID:          refund.ID.String(),
				OriginalPaymentID: original.ID.String(),
				OrderKind:         ref.Kind,
				OrderID:           ref.ID.String(),
				UserID:            original.UserID.String(),
				RefundType:        input.Type,
				AmountCents:       amountCents,
				Reason:            input.Reason,
			},
		})
	})
	if err != nil {
		// money already moved at the provider; this divergence needs a
		// human, so record everything an operator needs to resolve it
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"payment_id":         original.ID.String(),
				"provider_refund_id": providerRefund.ID,
				"amount_cents":       amountCents,
			})
			s.logg.Error(logCtx, "provider refund issued but local records failed", err)
		}
		return nil, err
	}
	return refund, nil
}

// ensureRefundAccess applies the shared order-access rule: the paying user,
// the owner of the facility the order was placed against, or an admin. A
// mismatch is forbidden, never not-found.
func (s *service) ensureRefundAccess(ctx context.Context, actor visibility.Actor, original *models.Payment, ref models.OrderRef) error {
	var (
		facilityOwnerID uuid.UUID
		err             error
	)
	switch ref.Kind {
	case enums.OrderKindBooking:
		facilityOwnerID, err = s.ordersRepo.FacilityOwnerForBooking(ctx, ref.ID)
	default:
		facilityOwnerID, err = s.ordersRepo.FacilityOwnerForRentalOrder(ctx, ref.ID)
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve facility owner")
	}
	return visibility.EnsureOrderAccess(visibility.OrderAccessInput{
		Actor:           actor,
		OwnerID:         original.UserID,
		FacilityOwnerID: facilityOwnerID,
	})
}

// cancelOrderIfOpen cancels the refunded order when the state machine still
// allows it. Orders already cancelled or completed are left alone; overdue
// rentals cancel and release their stock. An active order has to be closed
// before a full refund because active only exits through completed or
// overdue.
func (s *service) cancelOrderIfOpen(ctx context.Context, tx *gorm.DB, ref models.OrderRef, actor *outbox.ActorRef) error {
	status, err := s.orderStatus(ctx, tx, ref)
	if err != nil {
		return err
	}
	switch status {
	case enums.OrderStatusCancelled, enums.OrderStatusCompleted:
		return nil
	case enums.OrderStatusDraft, enums.OrderStatusConfirmed, enums.OrderStatusOverdue:
		return s.orders.TransitionTx(ctx, tx, ref, enums.OrderStatusCancelled, actor)
	default:
		return pkgerrors.New(pkgerrors.CodeInvalidState, "close the order before a full refund").
			WithDetails(map[string]any{"status": status.String()})
	}
}

func (s *service) orderStatus(ctx context.Context, tx *gorm.DB, ref models.OrderRef) (enums.OrderStatus, error) {
	repo := s.ordersRepo.WithTx(tx)
	switch ref.Kind {
	case enums.OrderKindBooking:
		booking, err := repo.FindBooking(ctx, ref.ID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		return booking.Status, nil
	default:
		order, err := repo.FindRentalOrder(ctx, ref.ID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental order")
		}
		return order.Status, nil
	}
}

// refundAmount bounds the refund by the original charge. Full refunds
// reverse everything; partial refunds need an explicit positive amount.
func refundAmount(input CreateInput, original *models.Payment) (int64, error) {
	if input.Type == enums.RefundTypeFull {
		return original.AmountCents, nil
	}
	if input.AmountCents <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "partial refund amount must be positive")
	}
	if input.AmountCents > original.AmountCents {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds the original charge").
			WithDetails(map[string]any{
				"requested": input.AmountCents,
				"charged":   original.AmountCents,
			})
	}
	return input.AmountCents, nil
}

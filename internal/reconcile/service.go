package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/internal/orders"
	"github.com/courtside-app/courtside-backend/internal/payments"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/logger"
	"github.com/courtside-app/courtside-backend/pkg/metrics"
	"github.com/courtside-app/courtside-backend/pkg/outbox"
	"github.com/courtside-app/courtside-backend/pkg/razorpay"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type secretSource interface {
	KeySecret() string
}

// Service converges the two confirmation channels (provider webhook and
// client verification) onto one payment outcome. Whichever channel arrives
// first claims the pending payment; the other becomes a no-op.
type Service interface {
	VerifyPayment(ctx context.Context, input VerifyInput) (*models.Payment, error)
	HandleProviderCapture(ctx context.Context, providerOrderID, providerPaymentID string) error
	HandleProviderFailure(ctx context.Context, providerOrderID, providerPaymentID, reason string) error
	SweepStuckPayments(ctx context.Context, lookback time.Duration) (int, error)
}

type service struct {
	payments payments.Repository
	orders   orders.Service
	tx       txRunner
	outbox   outboxPublisher
	secrets  secretSource
	metrics  *metrics.ReconciliationMetrics
	logg     *logger.Logger
}

// NewService builds the reconciliation engine with the required dependencies.
func NewService(
	paymentsRepo payments.Repository,
	ordersSvc orders.Service,
	tx txRunner,
	outboxSvc outboxPublisher,
	secrets secretSource,
	recMetrics *metrics.ReconciliationMetrics,
	logg *logger.Logger,
) (Service, error) {
	if paymentsRepo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if secrets == nil {
		return nil, fmt.Errorf("gateway secret source required")
	}
	return &service{
		payments: paymentsRepo,
		orders:   ordersSvc,
		tx:       tx,
		outbox:   outboxSvc,
		secrets:  secrets,
		metrics:  recMetrics,
		logg:     logg,
	}, nil
}

// VerifyPayment is the client channel. The signature covers
// "<provider_order_id>|<provider_payment_id>" with the API secret; a
// mismatch fails the payment and records the attempted payment id and
// signature.
func (s *service) VerifyPayment(ctx context.Context, input VerifyInput) (*models.Payment, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.ProviderOrderID == "" || input.ProviderPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider order id and payment id required")
	}

	payment, err := s.payments.FindByProviderOrderID(ctx, enums.PaymentProviderRazorpay, input.ProviderOrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// an unknown provider order is a lookup miss, not a forgery
			// attempt; only a signature mismatch gets the opaque answer
			s.countOutcome("client", "unknown")
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment for provider order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.UserID != input.Actor.UserID && input.Actor.Role != enums.MemberRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to the caller")
	}

	if payment.Status == enums.PaymentStatusCompleted {
		s.countOutcome("client", "duplicate")
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyVerified, "payment already verified")
	}
	if payment.Status != enums.PaymentStatusPending {
		s.countOutcome("client", "terminal")
		return nil, pkgerrors.New(pkgerrors.CodeVerification, "payment verification failed")
	}

	if !razorpay.VerifyPaymentSignature(input.ProviderOrderID, input.ProviderPaymentID, input.Signature, s.secrets.KeySecret()) {
		s.countOutcome("client", "mismatch")
		if failErr := s.failPayment(ctx, payment, "signature mismatch", &input.ProviderPaymentID, &input.Signature); failErr != nil {
			return nil, failErr
		}
		return nil, pkgerrors.New(pkgerrors.CodeVerification, "payment verification failed")
	}

	actor := &outbox.ActorRef{UserID: input.Actor.UserID, Role: input.Actor.Role.String()}
	result, err := s.applyCapture(ctx, payment.ID, input.ProviderPaymentID, input.Signature, actor)
	if err != nil {
		s.countOutcome("client", "failed")
		return nil, err
	}
	if result == captureDuplicate {
		s.countOutcome("client", "duplicate")
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyVerified, "payment already verified")
	}
	s.countOutcome("client", "confirmed")

	return s.payments.FindByID(ctx, payment.ID)
}

// HandleProviderCapture is the webhook channel. The webhook body signature
// is checked upstream; by the time this runs the event is authentic.
func (s *service) HandleProviderCapture(ctx context.Context, providerOrderID, providerPaymentID string) error {
	payment, err := s.payments.FindByProviderOrderID(ctx, enums.PaymentProviderRazorpay, providerOrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.countOutcome("webhook", "unknown")
			return pkgerrors.New(pkgerrors.CodeNotFound, "no payment for provider order")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	if payment.Status == enums.PaymentStatusCompleted {
		// the client channel won; a replayed capture is a no-op
		s.countOutcome("webhook", "duplicate")
		return nil
	}
	if payment.Status != enums.PaymentStatusPending {
		s.countOutcome("webhook", "terminal")
		return pkgerrors.New(pkgerrors.CodeInvalidState, "captured payment is no longer pending").
			WithDetails(map[string]any{"status": payment.Status.String()})
	}

	result, err := s.applyCapture(ctx, payment.ID, providerPaymentID, "", nil)
	if err != nil {
		s.countOutcome("webhook", "failed")
		return err
	}
	if result == captureDuplicate {
		s.countOutcome("webhook", "duplicate")
		return nil
	}
	s.countOutcome("webhook", "confirmed")
	return nil
}

// HandleProviderFailure records a failed charge. If a capture already won
// the race the failure is stale and ignored.
func (s *service) HandleProviderFailure(ctx context.Context, providerOrderID, providerPaymentID, reason string) error {
	payment, err := s.payments.FindByProviderOrderID(ctx, enums.PaymentProviderRazorpay, providerOrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no payment for provider order")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	if payment.Status != enums.PaymentStatusPending {
		return nil
	}
	if reason == "" {
		reason = "provider reported failure"
	}
	var attempted *string
	if providerPaymentID != "" {
		attempted = &providerPaymentID
	}
	return s.failPayment(ctx, payment, reason, attempted, nil)
}

// applyCapture claims the pending payment and confirms its order in one
// transaction. Either everything lands (payment completed, payment attached,
// order confirmed, event queued) or nothing does.
func (s *service) applyCapture(ctx context.Context, paymentID uuid.UUID, providerPaymentID, signature string, actor *outbox.ActorRef) (captureResult, error) {
	result := captureApplied
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		payment, err := repo.FindByID(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
		}

		if payment.Status == enums.PaymentStatusCompleted {
			if payment.ProviderPaymentID != nil && *payment.ProviderPaymentID == providerPaymentID {
				result = captureDuplicate
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "payment completed with a different provider payment id")
		}

		ok, err := repo.MarkCompletedIf(ctx, payment.ID, providerPaymentID, signature)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment changed concurrently")
		}

		ref, hasRef := payment.OrderRef()
		if !hasRef {
			return pkgerrors.New(pkgerrors.CodeInternal, "payment carries no order reference")
		}
		if err := s.orders.AttachPaymentTx(ctx, tx, ref, payment.ID); err != nil {
			return err
		}
		if err := s.orders.TransitionTx(ctx, tx, ref, enums.OrderStatusConfirmed, actor); err != nil {
			return err
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentConfirmed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Actor:         actor,
			Data: PaymentConfirmedEvent{
				PaymentID:   payment.ID.String(),
				OrderKind:   ref.Kind,
				OrderID:     ref.ID.String(),
				UserID:      payment.UserID.String(),
				AmountCents: payment.AmountCents,
			},
		})
	})
	if err != nil {
		return captureApplied, err
	}
	return result, nil
}

func (s *service) failPayment(ctx context.Context, payment *models.Payment, reason string, attemptedPaymentID, attemptedSignature *string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		ok, err := repo.MarkFailedIf(ctx, payment.ID, reason, attemptedPaymentID, attemptedSignature)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
		}
		if !ok {
			// a capture slipped in between the read and this write
			return nil
		}

		ref, hasRef := payment.OrderRef()
		if !hasRef {
			return nil
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: PaymentFailedEvent{
				PaymentID: payment.ID.String(),
				OrderKind: ref.Kind,
				OrderID:   ref.ID.String(),
				UserID:    payment.UserID.String(),
				Reason:    reason,
			},
		})
	})
}

// SweepStuckPayments repairs payments that completed without their order
// leaving draft, typically after a crash between the provider call and the
// local commit. Returns how many orders were repaired.
func (s *service) SweepStuckPayments(ctx context.Context, lookback time.Duration) (int, error) {
	since := time.Now().Add(-lookback)
	stuck, err := s.payments.FindCompletedWithDraftOrders(ctx, since)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stuck payments")
	}

	repaired := 0
	for i := range stuck {
		payment := stuck[i]
		ref, hasRef := payment.OrderRef()
		if !hasRef {
			continue
		}
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.orders.AttachPaymentTx(ctx, tx, ref, payment.ID); err != nil {
				return err
			}
			if err := s.orders.TransitionTx(ctx, tx, ref, enums.OrderStatusConfirmed, nil); err != nil {
				return err
			}
			return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentConfirmed,
				AggregateType: enums.AggregatePayment,
				AggregateID:   payment.ID,
				Version:       1,
				Data: PaymentConfirmedEvent{
					PaymentID:   payment.ID.String(),
					OrderKind:   ref.Kind,
					OrderID:     ref.ID.String(),
					UserID:      payment.UserID.String(),
					AmountCents: payment.AmountCents,
				},
			})
		})
		if err != nil {
			if s.logg != nil {
				logCtx := s.logg.WithPaymentID(ctx, payment.ID.String())
				s.logg.Error(logCtx, "sweep could not repair stuck payment", err)
			}
			continue
		}
		repaired++
	}
	return repaired, nil
}

func (s *service) countOutcome(channel, outcome string) {
	if s.metrics != nil {
		s.metrics.IncOutcome(channel, outcome)
	}
}

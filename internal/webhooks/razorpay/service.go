package razorpay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/logger"
	"github.com/courtside-app/courtside-backend/pkg/metrics"
	rzp "github.com/courtside-app/courtside-backend/pkg/razorpay"
)

type reconciler interface {
	HandleProviderCapture(ctx context.Context, providerOrderID, providerPaymentID string) error
	HandleProviderFailure(ctx context.Context, providerOrderID, providerPaymentID, reason string) error
}

type dedupeGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Service authenticates, dedupes, and dispatches Razorpay webhook
// deliveries. Every authentic delivery leaves an audit row, handled or not.
type Service interface {
	Handle(ctx context.Context, body []byte, signature, eventID string) error
}

type service struct {
	reconcile reconciler
	guard     dedupeGuard
	repo      Repository
	secret    string
	metrics   *metrics.ReconciliationMetrics
	logg      *logger.Logger
}

// NewService builds the webhook handler with the required dependencies.
func NewService(
	reconcileSvc reconciler,
	guard dedupeGuard,
	repo Repository,
	webhookSecret string,
	recMetrics *metrics.ReconciliationMetrics,
	logg *logger.Logger,
) (Service, error) {
	if reconcileSvc == nil {
		return nil, fmt.Errorf("reconcile service required")
	}
	if guard == nil {
		return nil, fmt.Errorf("dedupe guard required")
	}
	if repo == nil {
		return nil, fmt.Errorf("webhook repository required")
	}
	if webhookSecret == "" {
		return nil, fmt.Errorf("webhook secret required")
	}
	return &service{
		reconcile: reconcileSvc,
		guard:     guard,
		repo:      repo,
		secret:    webhookSecret,
		metrics:   recMetrics,
		logg:      logg,
	}, nil
}

func (s *service) Handle(ctx context.Context, body []byte, signature, eventID string) error {
	if !rzp.VerifyWebhookSignature(body, signature, s.secret) {
		s.countWebhook("unknown", "rejected")
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature mismatch")
	}

	var event envelope
	if err := json.Unmarshal(body, &event); err != nil {
		s.countWebhook("unknown", "malformed")
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook body")
	}

	if eventID != "" {
		first, err := s.guard.CheckAndMark(ctx, eventID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedupe")
		}
		if !first {
			s.countWebhook(event.Event, "duplicate")
			return nil
		}
	}

	handleErr := s.dispatch(ctx, event)
	s.audit(ctx, event, eventID, body, handleErr)

	if handleErr != nil {
		// orphan events reference payments from another environment or a
		// purged record; acking them stops pointless provider retries
		if pkgerrors.IsCode(handleErr, pkgerrors.CodeNotFound) {
			if s.logg != nil {
				logCtx := s.logg.WithField(ctx, "event_type", event.Event)
				s.logg.Warn(logCtx, "webhook references unknown payment")
			}
			s.countWebhook(event.Event, "orphan")
			return nil
		}
		// once the signature checked out the provider always gets a 200;
		// the dedupe key is released so a redelivery can retry, and the
		// reconcile sweep repairs anything the provider never resends
		if eventID != "" {
			if releaseErr := s.guard.Release(ctx, eventID); releaseErr != nil && s.logg != nil {
				s.logg.Error(ctx, "releasing webhook dedupe key", releaseErr)
			}
		}
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "event_type", event.Event)
			s.logg.Error(logCtx, "webhook handling failed", handleErr)
		}
		s.countWebhook(event.Event, "failed")
		return nil
	}

	s.countWebhook(event.Event, "handled")
	return nil
}

func (s *service) dispatch(ctx context.Context, event envelope) error {
	switch event.Event {
	case EventPaymentCaptured:
		payment := event.Payload.Payment.Entity
		if payment.OrderID == "" || payment.ID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "capture event missing payment identifiers")
		}
		return s.reconcile.HandleProviderCapture(ctx, payment.OrderID, payment.ID)
	case EventPaymentFailed:
		payment := event.Payload.Payment.Entity
		if payment.OrderID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "failure event missing order id")
		}
		return s.reconcile.HandleProviderFailure(ctx, payment.OrderID, payment.ID, payment.ErrorDescription)
	case EventOrderPaid:
		// the capture event carries the same information and drives the
		// reconcile path; order.paid is informational only
		return nil
	case EventRefundCreated, EventRefundProcessed:
		// refunds are initiated locally, so these events only confirm
		// what the refund coordinator already recorded
		return nil
	default:
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "event_type", event.Event)
			s.logg.Info(logCtx, "ignoring unhandled webhook event")
		}
		return nil
	}
}

func (s *service) audit(ctx context.Context, event envelope, eventID string, body []byte, handleErr error) {
	row := &models.WebhookEvent{
		Provider:  enums.PaymentProviderRazorpay.String(),
		EventID:   eventID,
		EventType: event.Event,
		Payload:   json.RawMessage(body),
		Handled:   handleErr == nil,
	}
	if handleErr != nil {
		msg := handleErr.Error()
		row.HandleError = &msg
	}
	if err := s.repo.Insert(ctx, row); err != nil && s.logg != nil {
		s.logg.Error(ctx, "recording webhook audit row", err)
	}
}

func (s *service) countWebhook(eventType, outcome string) {
	if s.metrics != nil {
		s.metrics.IncWebhook(eventType, outcome)
	}
}

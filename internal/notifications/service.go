package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/email"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/logger"
	"github.com/courtside-app/courtside-backend/pkg/outbox"
	"github.com/courtside-app/courtside-backend/pkg/pagination"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

// Service turns domain events into in-app notifications and email, and
// serves the notification inbox.
type Service interface {
	ProcessEvent(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
	List(ctx context.Context, actor visibility.Actor, params pagination.Params) (*Page, error)
	UnreadCount(ctx context.Context, actor visibility.Actor) (int64, error)
	MarkRead(ctx context.Context, actor visibility.Actor, id uuid.UUID) error
	MarkAllRead(ctx context.Context, actor visibility.Actor) error
}

type service struct {
	repo   Repository
	sender email.Sender
	logg   *logger.Logger
}

// NewService builds the notifications service with the required dependencies.
func NewService(repo Repository, sender email.Sender, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	return &service{repo: repo, sender: sender, logg: logg}, nil
}

func (s *service) ProcessEvent(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	notificationType, ok := notificationTypeFor(eventType)
	if !ok {
		return nil
	}

	var data eventData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event data")
	}
	userID, err := uuid.Parse(data.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse event user id")
	}

	title, message := render(notificationType, data)
	notification := &models.Notification{
		UserID:   userID,
		Type:     notificationType,
		Title:    title,
		Message:  message,
		Metadata: envelope.Data,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}

	// email is best effort; the inbox row is the system of record
	if address, lookupErr := s.repo.UserEmail(ctx, userID); lookupErr == nil && address != "" {
		if sendErr := s.sender.Send(ctx, address, title, message); sendErr != nil && s.logg != nil {
			logCtx := s.logg.WithUserID(ctx, userID.String())
			s.logg.Error(logCtx, "sending notification email", sendErr)
		}
	} else if lookupErr != nil && lookupErr != gorm.ErrRecordNotFound && s.logg != nil {
		s.logg.Error(ctx, "looking up notification recipient", lookupErr)
	}
	return nil
}

func (s *service) List(ctx context.Context, actor visibility.Actor, params pagination.Params) (*Page, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByUser(ctx, actor.UserID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	page := &Page{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		last := page.Items[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func (s *service) UnreadCount(ctx context.Context, actor visibility.Actor) (int64, error) {
	if actor.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	count, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, actor visibility.Actor, id uuid.UUID) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	ok, err := s.repo.MarkRead(ctx, actor.UserID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found or already read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, actor visibility.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.repo.MarkAllRead(ctx, actor.UserID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return nil
}

func notificationTypeFor(eventType enums.OutboxEventType) (enums.NotificationType, bool) {
	switch eventType {
	case enums.EventPaymentConfirmed:
		return enums.NotificationPaymentConfirmed, true
	case enums.EventPaymentFailed:
		return enums.NotificationPaymentFailed, true
	case enums.EventOrderCancelled:
		return enums.NotificationOrderCancelled, true
	case enums.EventOrderOverdue:
		return enums.NotificationOrderOverdue, true
	case enums.EventRefundIssued:
		return enums.NotificationRefundIssued, true
	default:
		return "", false
	}
}

func render(notificationType enums.NotificationType, data eventData) (title, message string) {
	kind := "booking"
	if data.OrderKind == enums.OrderKindRental {
		kind = "rental order"
	}
	switch notificationType {
	case enums.NotificationPaymentConfirmed:
		return "Payment confirmed",
			fmt.Sprintf("Your payment of %s was received and your %s is confirmed.", formatAmount(data.AmountCents), kind)
	case enums.NotificationPaymentFailed:
		if data.Reason != "" {
			return "Payment failed", fmt.Sprintf("Your payment could not be completed: %s.", data.Reason)
		}
		return "Payment failed", "Your payment could not be completed. Please try again."
	case enums.NotificationOrderCancelled:
		return "Order cancelled", fmt.Sprintf("Your %s has been cancelled.", kind)
	case enums.NotificationOrderOverdue:
		return "Return overdue", fmt.Sprintf("Your %s is overdue. Please return the equipment to avoid extra charges.", kind)
	case enums.NotificationRefundIssued:
		return "Refund issued", fmt.Sprintf("A refund of %s has been issued to your payment method.", formatAmount(data.AmountCents))
	default:
		return "", ""
	}
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("₹%d.%02d", cents/100, cents%100)
}

package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/internal/inventory"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/outbox"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives the shared order lifecycle for bookings and rental orders.
// TransitionTx is the single choke point every status change goes through,
// including the ones initiated by payment reconciliation and cron.
type Service interface {
	Transition(ctx context.Context, input TransitionInput) error
	TransitionTx(ctx context.Context, tx *gorm.DB, ref models.OrderRef, target enums.OrderStatus, actor *outbox.ActorRef) error
	AttachPaymentTx(ctx context.Context, tx *gorm.DB, ref models.OrderRef, paymentID uuid.UUID) error
	Delete(ctx context.Context, input DeleteInput) error
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	inventory inventory.Service
}

// NewService builds the order lifecycle service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, inventorySvc inventory.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if inventorySvc == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outboxSvc,
		inventory: inventorySvc,
	}, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) error {
	if input.Ref.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Target == enums.OrderStatusConfirmed {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "orders are confirmed through payment verification")
	}

	ownerID, facilityOwnerID, err := s.orderParties(ctx, input.Ref)
	if err != nil {
		return err
	}
	if err := visibility.EnsureOrderAccess(visibility.OrderAccessInput{
		Actor:           input.Actor,
		OwnerID:         ownerID,
		FacilityOwnerID: facilityOwnerID,
	}); err != nil {
		return err
	}

	actor := &outbox.ActorRef{UserID: input.Actor.UserID, Role: input.Actor.Role.String()}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.TransitionTx(ctx, tx, input.Ref, input.Target, actor)
	})
}

// TransitionTx applies one lifecycle edge inside the caller's transaction.
// The status update is compare-and-set against the loaded status, so a
// concurrent writer taking the same or a conflicting edge makes this call
// fail with a conflict instead of double-applying inventory effects.
func (s *service) TransitionTx(ctx context.Context, tx *gorm.DB, ref models.OrderRef, target enums.OrderStatus, actor *outbox.ActorRef) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for order transition")
	}

	switch ref.Kind {
	case enums.OrderKindBooking:
		return s.transitionBooking(ctx, tx, ref.ID, target, actor)
	case enums.OrderKindRental:
		return s.transitionRentalOrder(ctx, tx, ref.ID, target, actor)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order kind %q", ref.Kind))
	}
}

func (s *service) transitionBooking(ctx context.Context, tx *gorm.DB, id uuid.UUID, target enums.OrderStatus, actor *outbox.ActorRef) error {
	repo := s.repo.WithTx(tx)
	booking, err := repo.FindBooking(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking.Status == target {
		// repeating a transition that already landed is a no-op: no status
		// write, no inventory effect, no event
		return nil
	}
	if err := ValidateTransition(booking.Status, target); err != nil {
		return err
	}

	ok, err := repo.UpdateBookingStatusIf(ctx, booking.ID, booking.Status, target)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "booking changed concurrently")
	}

	ref := models.OrderRef{Kind: enums.OrderKindBooking, ID: booking.ID}
	return s.emitLifecycleEvent(ctx, tx, ref, booking.UserID, booking.Status, target, actor)
}

func (s *service) transitionRentalOrder(ctx context.Context, tx *gorm.DB, id uuid.UUID, target enums.OrderStatus, actor *outbox.ActorRef) error {
	repo := s.repo.WithTx(tx)
	order, err := repo.FindRentalOrder(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "rental order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental order")
	}
	if order.Status == target {
		return nil
	}
	if err := ValidateTransition(order.Status, target); err != nil {
		return err
	}

	ok, err := repo.UpdateRentalOrderStatusIf(ctx, order.ID, order.Status, target)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rental order status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "rental order changed concurrently")
	}

	switch EffectFor(order.Status, target) {
	case EffectReserve:
		if err := s.inventory.ReserveItems(ctx, tx, order.Items); err != nil {
			return err
		}
	case EffectRelease:
		if err := s.inventory.ReleaseItems(ctx, tx, order.Items); err != nil {
			return err
		}
	}

	ref := models.OrderRef{Kind: enums.OrderKindRental, ID: order.ID}
	return s.emitLifecycleEvent(ctx, tx, ref, order.UserID, order.Status, target, actor)
}

func (s *service) emitLifecycleEvent(ctx context.Context, tx *gorm.DB, ref models.OrderRef, userID uuid.UUID, from, to enums.OrderStatus, actor *outbox.ActorRef) error {
	switch to {
	case enums.OrderStatusCancelled:
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: aggregateFor(ref.Kind),
			AggregateID:   ref.ID,
			Version:       1,
			Actor:         actor,
			Data: OrderCancelledEvent{
				OrderKind: ref.Kind,
				OrderID:   ref.ID.String(),
				UserID:    userID.String(),
				From:      from,
			},
		})
	case enums.OrderStatusOverdue:
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderOverdue,
			AggregateType: aggregateFor(ref.Kind),
			AggregateID:   ref.ID,
			Version:       1,
			Actor:         actor,
			Data: OrderOverdueEvent{
				OrderKind: ref.Kind,
				OrderID:   ref.ID.String(),
				UserID:    userID.String(),
			},
		})
	}
	return nil
}

// AttachPaymentTx links a payment to its order exactly once. A second
// attachment with a different payment id is a conflict.
func (s *service) AttachPaymentTx(ctx context.Context, tx *gorm.DB, ref models.OrderRef, paymentID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for payment attach")
	}
	repo := s.repo.WithTx(tx)

	var (
		ok  bool
		err error
	)
	switch ref.Kind {
	case enums.OrderKindBooking:
		ok, err = repo.AttachBookingPayment(ctx, ref.ID, paymentID)
	case enums.OrderKindRental:
		ok, err = repo.AttachRentalOrderPayment(ctx, ref.ID, paymentID)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order kind %q", ref.Kind))
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment to order")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order already carries a different payment")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	if input.Ref.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		switch input.Ref.Kind {
		case enums.OrderKindBooking:
			booking, err := repo.FindBooking(ctx, input.Ref.ID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
			}
			if err := ensureDeletable(input.Actor, booking.UserID, booking.Status); err != nil {
				return err
			}
			return repo.DeleteBooking(ctx, booking.ID)
		case enums.OrderKindRental:
			order, err := repo.FindRentalOrder(ctx, input.Ref.ID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "rental order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental order")
			}
			if err := ensureDeletable(input.Actor, order.UserID, order.Status); err != nil {
				return err
			}
			return repo.DeleteRentalOrder(ctx, order.ID)
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order kind %q", input.Ref.Kind))
		}
	})
}

func (s *service) orderParties(ctx context.Context, ref models.OrderRef) (ownerID, facilityOwnerID uuid.UUID, err error) {
	switch ref.Kind {
	case enums.OrderKindBooking:
		booking, findErr := s.repo.FindBooking(ctx, ref.ID)
		if findErr != nil {
			if findErr == gorm.ErrRecordNotFound {
				return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load booking")
		}
		facilityOwnerID, err = s.repo.FacilityOwnerForBooking(ctx, ref.ID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve facility owner")
		}
		return booking.UserID, facilityOwnerID, nil
	case enums.OrderKindRental:
		order, findErr := s.repo.FindRentalOrder(ctx, ref.ID)
		if findErr != nil {
			if findErr == gorm.ErrRecordNotFound {
				return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental order not found")
			}
			return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load rental order")
		}
		facilityOwnerID, err = s.repo.FacilityOwnerForRentalOrder(ctx, ref.ID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve facility owner")
		}
		return order.UserID, facilityOwnerID, nil
	default:
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order kind %q", ref.Kind))
	}
}

func ensureDeletable(actor visibility.Actor, ownerID uuid.UUID, status enums.OrderStatus) error {
	if actor.Role != enums.MemberRoleAdmin && actor.UserID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to the caller")
	}
	if !status.AllowsDeletion() {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "only draft or cancelled orders can be deleted").
			WithDetails(map[string]any{"status": status.String()})
	}
	return nil
}

func aggregateFor(kind enums.OrderKind) enums.OutboxAggregateType {
	if kind == enums.OrderKindRental {
		return enums.AggregateRentalOrder
	}
	return enums.AggregateBooking
}

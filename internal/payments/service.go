package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/internal/orders"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/razorpay"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

type gateway interface {
	CreateOrder(ctx context.Context, amountCents int64, currency, receipt string, notes map[string]any) (*razorpay.Order, error)
	KeySecret() string
}

// Service opens checkouts against the payment provider and records the
// pending payment row the reconciliation engine later resolves.
type Service interface {
	CreateCheckout(ctx context.Context, input CreateInput) (*Checkout, error)
	Get(ctx context.Context, actor visibility.Actor, id uuid.UUID) (*models.Payment, error)
}

type service struct {
	repo     Repository
	orders   orders.Repository
	gateway  gateway
	keyID    string
	currency string
}

// NewService builds a payments service with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, gw gateway, keyID, currency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if currency == "" {
		currency = "INR"
	}
	return &service{
		repo:     repo,
		orders:   ordersRepo,
		gateway:  gw,
		keyID:    keyID,
		currency: currency,
	}, nil
}

func (s *service) CreateCheckout(ctx context.Context, input CreateInput) (*Checkout, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.Ref.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	ownerID, status, amountCents, err := s.orderForCheckout(ctx, input.Ref)
	if err != nil {
		return nil, err
	}
	if ownerID != input.Actor.UserID && input.Actor.Role != enums.MemberRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to the caller")
	}
	if status != enums.OrderStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "only draft orders can be paid").
			WithDetails(map[string]any{"status": status.String()})
	}
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "order has nothing to charge")
	}

	// an open checkout for the order is reused rather than stacking
	// multiple pending charges against the provider
	if existing, findErr := s.repo.FindPendingByOrder(ctx, input.Ref); findErr == nil {
		return s.checkout(existing), nil
	} else if findErr != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load pending payment")
	}

	providerOrder, err := s.gateway.CreateOrder(ctx, amountCents, s.currency, input.Ref.ID.String(), map[string]any{
		"order_kind": input.Ref.Kind.String(),
		"order_id":   input.Ref.ID.String(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create provider order")
	}

	payment := &models.Payment{
		ID:              uuid.New(),
		UserID:          ownerID,
		OrderKind:       input.Ref.Kind,
		AmountCents:     amountCents,
		Currency:        s.currency,
		Provider:        enums.PaymentProviderRazorpay,
		ProviderOrderID: providerOrder.ID,
		Status:          enums.PaymentStatusPending,
	}
	switch input.Ref.Kind {
	case enums.OrderKindBooking:
		id := input.Ref.ID
		payment.BookingID = &id
	case enums.OrderKindRental:
		id := input.Ref.ID
		payment.RentalOrderID = &id
	}

	payment, err = s.repo.Create(ctx, payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment record")
	}
	return s.checkout(payment), nil
}

func (s *service) Get(ctx context.Context, actor visibility.Actor, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.UserID != actor.UserID && actor.Role != enums.MemberRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to the caller")
	}
	return payment, nil
}

func (s *service) checkout(payment *models.Payment) *Checkout {
	return &Checkout{
		Payment:         payment,
		ProviderOrderID: payment.ProviderOrderID,
		KeyID:           s.keyID,
		AmountCents:     payment.AmountCents,
		Currency:        payment.Currency,
	}
}

func (s *service) orderForCheckout(ctx context.Context, ref models.OrderRef) (ownerID uuid.UUID, status enums.OrderStatus, amountCents int64, err error) {
	switch ref.Kind {
	case enums.OrderKindBooking:
		booking, findErr := s.orders.FindBooking(ctx, ref.ID)
		if findErr != nil {
			if findErr == gorm.ErrRecordNotFound {
				return uuid.Nil, "", 0, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return uuid.Nil, "", 0, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load booking")
		}
		return booking.UserID, booking.Status, int64(booking.TotalCents + booking.DepositCents), nil
	case enums.OrderKindRental:
		order, findErr := s.orders.FindRentalOrder(ctx, ref.ID)
		if findErr != nil {
			if findErr == gorm.ErrRecordNotFound {
				return uuid.Nil, "", 0, pkgerrors.New(pkgerrors.CodeNotFound, "rental order not found")
			}
			return uuid.Nil, "", 0, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load rental order")
		}
		return order.UserID, order.Status, int64(order.TotalCents + order.DepositCents), nil
	default:
		return uuid.Nil, "", 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order kind %q", ref.Kind))
	}
}

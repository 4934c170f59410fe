package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/internal/catalog"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/pagination"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service creates and reads court bookings. Lifecycle changes go through the
// orders service, not here.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Booking, error)
	Get(ctx context.Context, actor visibility.Actor, id uuid.UUID) (*models.Booking, error)
	List(ctx context.Context, actor visibility.Actor, params pagination.Params) (*List, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
}

// NewService builds a bookings service with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: catalogRepo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Booking, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.CourtID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "court id required")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking must end after it starts")
	}
	if input.StartsAt.Before(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking cannot start in the past")
	}

	var booking *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)

		court, err := catalogRepo.FindCourt(ctx, input.CourtID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "court not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load court")
		}

		// overlap check runs inside the creation transaction so two racing
		// requests for the same slot cannot both pass
		overlap, err := catalogRepo.CourtHasOverlap(ctx, court.ID, input.StartsAt, input.EndsAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slot availability")
		}
		if overlap {
			return pkgerrors.New(pkgerrors.CodeConflict, "court is already booked for this window")
		}

		booking = &models.Booking{
			UserID:     input.Actor.UserID,
			CourtID:    court.ID,
			StartsAt:   input.StartsAt.UTC(),
			EndsAt:     input.EndsAt.UTC(),
			TotalCents: slotPriceCents(court.HourRateCents, input.StartsAt, input.EndsAt),
			Status:     enums.OrderStatusDraft,
		}
		if booking.ID == uuid.Nil {
			booking.ID = uuid.New()
		}
		booking, err = s.repo.WithTx(tx).Create(ctx, booking)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) Get(ctx context.Context, actor visibility.Actor, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}

	facilityOwnerID, err := s.repo.FacilityOwnerForCourt(ctx, booking.CourtID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve facility owner")
	}
	if err := visibility.EnsureOrderAccess(visibility.OrderAccessInput{
		Actor:           actor,
		OwnerID:         booking.UserID,
		FacilityOwnerID: facilityOwnerID,
	}); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) List(ctx context.Context, actor visibility.Actor, params pagination.Params) (*List, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	list, err := s.repo.ListByUser(ctx, actor.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}
	return list, nil
}

// slotPriceCents prices the window at the court's hourly rate, prorated to
// the minute and rounded half up.
func slotPriceCents(hourRateCents int, startsAt, endsAt time.Time) int {
	minutes := decimal.NewFromFloat(endsAt.Sub(startsAt).Minutes())
	total := minutes.
		Mul(decimal.NewFromInt(int64(hourRateCents))).
		Div(decimal.NewFromInt(60))
	return int(total.Round(0).IntPart())
}

package rentals

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

// Service creates and reads rental orders. Stock is only soft-checked here;
// the hard reserve happens when the order activates.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.RentalOrder, error)
	Get(ctx context.Context, actor visibility.Actor, id uuid.UUID) (*models.RentalOrder, error)
	List(ctx context.Context, actor visibility.Actor, params pagination.Params) (*List, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
}

// NewService builds a rentals service with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rentals repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: catalogRepo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.RentalOrder, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product line required")
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental must end after it starts")
	}
	days := rentalDays(input.StartDate, input.EndDate)

	var order *models.RentalOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)

		var (
			facilityID   uuid.UUID
			totalCents   int
			depositCents int
			items        []models.RentalOrderItem
		)
		for _, line := range input.Lines {
			if line.Qty <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
			}
			product, err := catalogRepo.FindRentalProduct(ctx, line.ProductID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "rental product not found").
						WithDetails(map[string]any{"product_id": line.ProductID.String()})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental product")
			}
			if facilityID == uuid.Nil {
				facilityID = product.FacilityID
			} else if facilityID != product.FacilityID {
				return pkgerrors.New(pkgerrors.CodeValidation, "all lines must belong to one facility")
			}
			if product.AvailableQty < line.Qty {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient quantity available").
					WithDetails(map[string]any{
						"product_id": product.ID.String(),
						"requested":  line.Qty,
						"available":  product.AvailableQty,
					})
			}

			lineTotal := lineTotalCents(product.DailyRateCents, line.Qty, days)
			totalCents += lineTotal
			depositCents += product.DepositCents * line.Qty
			items = append(items, models.RentalOrderItem{
				ID:             uuid.New(),
				ProductID:      product.ID,
				Qty:            line.Qty,
				DailyRateCents: product.DailyRateCents,
				TotalCents:     lineTotal,
			})
		}

		order = &models.RentalOrder{
			ID:           uuid.New(),
			UserID:       input.Actor.UserID,
			FacilityID:   facilityID,
			StartDate:    input.StartDate,
			EndDate:      input.EndDate,
			TotalCents:   totalCents,
			DepositCents: depositCents,
			Status:       enums.OrderStatusDraft,
		}

		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental order")
		}
		for i := range items {
			items[i].RentalOrderID = order.ID
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental order items")
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, actor visibility.Actor, id uuid.UUID) (*models.RentalOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental order")
	}

	facilityOwnerID, err := s.repo.FacilityOwner(ctx, order.FacilityID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve facility owner")
	}
	if err := visibility.EnsureOrderAccess(visibility.OrderAccessInput{
		Actor:           actor,
		OwnerID:         order.UserID,
		FacilityOwnerID: facilityOwnerID,
	}); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor visibility.Actor, params pagination.Params) (*List, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	list, err := s.repo.ListByUser(ctx, actor.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rental orders")
	}
	return list, nil
}

// rentalDays counts whole days in [start, end), minimum one.
func rentalDays(start, end time.Time) int {
	days := int(end.Sub(start).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days
}

func lineTotalCents(dailyRateCents, qty, days int) int {
	total := decimal.NewFromInt(int64(dailyRateCents)).
		Mul(decimal.NewFromInt(int64(qty))).
		Mul(decimal.NewFromInt(int64(days)))
	return int(total.IntPart())
}

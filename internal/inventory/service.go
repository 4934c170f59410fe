package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
)

// Service is the only writer of rental_products.available_qty. Both mutations
// are single conditional statements so concurrent callers serialize on the
// row without a prior read.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	ReserveItems(ctx context.Context, tx *gorm.DB, items []models.RentalOrderItem) error
	ReleaseItems(ctx context.Context, tx *gorm.DB, items []models.RentalOrderItem) error
}

type service struct{}

// NewService builds the inventory ledger.
func NewService() Service {
	return service{}
}

// Reserve decrements available stock, failing when fewer than qty units are
// free. The guard in the WHERE clause keeps available_qty from going
// negative under concurrent reserves.
func (service) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory reserve")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE rental_products
		SET available_qty = available_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available_qty >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	if res.RowsAffected == 0 {
		return reserveFailure(ctx, tx, productID, qty)
	}
	return nil
}

// Release returns units to the pool, clamped at total_qty so duplicate
// releases cannot inflate capacity.
func (service) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory release")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE rental_products
		SET available_qty = CASE
				WHEN available_qty + ? > total_qty THEN total_qty
				ELSE available_qty + ?
			END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "rental product not found")
	}
	return nil
}

// ReserveItems reserves every line on a rental order. Any failure aborts the
// caller's transaction, which rolls back the partial reserves.
func (s service) ReserveItems(ctx context.Context, tx *gorm.DB, items []models.RentalOrderItem) error {
	for _, item := range items {
		if err := s.Reserve(ctx, tx, item.ProductID, item.Qty); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseItems releases every line on a rental order.
func (s service) ReleaseItems(ctx context.Context, tx *gorm.DB, items []models.RentalOrderItem) error {
	for _, item := range items {
		if err := s.Release(ctx, tx, item.ProductID, item.Qty); err != nil {
			return err
		}
	}
	return nil
}

func reserveFailure(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	var product models.RentalProduct
	err := tx.WithContext(ctx).
		Select("id", "available_qty").
		Where("id = ?", productID).
		First(&product).Error
	if err == gorm.ErrRecordNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "rental product not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental product")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient quantity available").
		WithDetails(map[string]any{
			"product_id": productID.String(),
			"requested":  qty,
			"available":  product.AvailableQty,
		})
}

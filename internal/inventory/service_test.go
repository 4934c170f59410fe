package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS rental_products (
  id TEXT PRIMARY KEY,
  facility_id TEXT NOT NULL,
  name TEXT NOT NULL,
  daily_rate_cents INTEGER NOT NULL,
  deposit_cents INTEGER NOT NULL DEFAULT 0,
  total_qty INTEGER NOT NULL,
  available_qty INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, total, available int) uuid.UUID {
	t.Helper()

	product := models.RentalProduct{
		ID:             uuid.New(),
		FacilityID:     uuid.New(),
		Name:           "racket",
		DailyRateCents: 500,
		TotalQty:       total,
		AvailableQty:   available,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	require.NoError(t, db.Create(&product).Error)
	return product.ID
}

func productAvailable(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()

	var product models.RentalProduct
	require.NoError(t, db.Where("id = ?", id).First(&product).Error)
	return product.AvailableQty
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	t.Run("decrements available stock", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		productID := seedProduct(t, db, 10, 10)

		require.NoError(t, svc.Reserve(ctx, db, productID, 3))
		require.Equal(t, 7, productAvailable(t, db, productID))
	})

	t.Run("rejects reserve beyond availability", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		productID := seedProduct(t, db, 10, 2)

		err := svc.Reserve(ctx, db, productID, 3)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
		require.Equal(t, 2, productAvailable(t, db, productID))
	})

	t.Run("exact availability drains to zero but not below", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		productID := seedProduct(t, db, 5, 5)

		require.NoError(t, svc.Reserve(ctx, db, productID, 5))
		require.Equal(t, 0, productAvailable(t, db, productID))

		err := svc.Reserve(ctx, db, productID, 1)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
		require.Equal(t, 0, productAvailable(t, db, productID))
	})

	t.Run("unknown product", func(t *testing.T) {
		db := setupInventoryTestDB(t)

		err := svc.Reserve(ctx, db, uuid.New(), 1)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		productID := seedProduct(t, db, 10, 10)

		err := svc.Reserve(ctx, db, productID, 0)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	t.Run("returns stock to the pool", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		productID := seedProduct(t, db, 10, 4)

		require.NoError(t, svc.Release(ctx, db, productID, 3))
		require.Equal(t, 7, productAvailable(t, db, productID))
	})

	t.Run("clamps at total capacity", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		productID := seedProduct(t, db, 10, 8)

		require.NoError(t, svc.Release(ctx, db, productID, 5))
		require.Equal(t, 10, productAvailable(t, db, productID))
	})

	t.Run("duplicate release cannot inflate capacity", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		productID := seedProduct(t, db, 10, 7)

		require.NoError(t, svc.Release(ctx, db, productID, 3))
		require.NoError(t, svc.Release(ctx, db, productID, 3))
		require.Equal(t, 10, productAvailable(t, db, productID))
	})

	t.Run("zero quantity is a no-op", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		productID := seedProduct(t, db, 10, 4)

		require.NoError(t, svc.Release(ctx, db, productID, 0))
		require.Equal(t, 4, productAvailable(t, db, productID))
	})
}

func TestReserveItemsAbortsOnShortage(t *testing.T) {
	ctx := context.Background()
	svc := NewService()
	db := setupInventoryTestDB(t)

	okProduct := seedProduct(t, db, 10, 10)
	shortProduct := seedProduct(t, db, 10, 1)

	items := []models.RentalOrderItem{
		{ProductID: okProduct, Qty: 2},
		{ProductID: shortProduct, Qty: 2},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ReserveItems(ctx, tx, items)
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	// rollback must undo the partial reserve on the first product
	require.Equal(t, 10, productAvailable(t, db, okProduct))
	require.Equal(t, 1, productAvailable(t, db, shortProduct))
}

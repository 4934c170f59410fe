package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/internal/inventory"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/outbox"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx.WithContext(ctx))
	})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  court_id TEXT NOT NULL,
  starts_at DATETIME NOT NULL,
  ends_at DATETIME NOT NULL,
  total_cents INTEGER NOT NULL,
  deposit_cents INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'draft',
  payment_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS rental_orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  facility_id TEXT NOT NULL,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  total_cents INTEGER NOT NULL,
  deposit_cents INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'draft',
  payment_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS rental_order_items (
  id TEXT PRIMARY KEY,
  rental_order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  qty INTEGER NOT NULL,
  daily_rate_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS rental_products (
  id TEXT PRIMARY KEY,
  facility_id TEXT NOT NULL,
  name TEXT NOT NULL,
  daily_rate_cents INTEGER NOT NULL,
  deposit_cents INTEGER NOT NULL DEFAULT 0,
  total_qty INTEGER NOT NULL,
  available_qty INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS facilities (
  id TEXT PRIMARY KEY,
  owner_user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  city TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS courts (
  id TEXT PRIMARY KEY,
  facility_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sport TEXT NOT NULL,
  hour_rate_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) (Service, *stubOutbox) {
	t.Helper()

	sink := &stubOutbox{}
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, sink, inventory.NewService())
	require.NoError(t, err)
	return svc, sink
}

func seedBooking(t *testing.T, db *gorm.DB, status enums.OrderStatus) *models.Booking {
	t.Helper()

	booking := &models.Booking{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		CourtID:    uuid.New(),
		StartsAt:   time.Now().Add(time.Hour),
		EndsAt:     time.Now().Add(2 * time.Hour),
		TotalCents: 2000,
		Status:     status,
	}
	require.NoError(t, db.Create(booking).Error)
	return booking
}

func seedRentalOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, qty, available int) (*models.RentalOrder, uuid.UUID) {
	t.Helper()

	product := models.RentalProduct{
		ID:             uuid.New(),
		FacilityID:     uuid.New(),
		Name:           "racket",
		DailyRateCents: 500,
		TotalQty:       10,
		AvailableQty:   available,
	}
	require.NoError(t, db.Create(&product).Error)

	order := &models.RentalOrder{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		FacilityID: product.FacilityID,
		StartDate:  time.Now().AddDate(0, 0, 1),
		EndDate:    time.Now().AddDate(0, 0, 3),
		TotalCents: 3000,
		Status:     status,
	}
	require.NoError(t, db.Create(order).Error)

	item := models.RentalOrderItem{
		ID:             uuid.New(),
		RentalOrderID:  order.ID,
		ProductID:      product.ID,
		Qty:            qty,
		DailyRateCents: 500,
		TotalCents:     3000,
	}
	require.NoError(t, db.Create(&item).Error)
	order.Items = []models.RentalOrderItem{item}
	return order, product.ID
}

func bookingStatus(t *testing.T, db *gorm.DB, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var booking models.Booking
	require.NoError(t, db.Where("id = ?", id).First(&booking).Error)
	return booking.Status
}

func rentalOrderStatus(t *testing.T, db *gorm.DB, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.RentalOrder
	require.NoError(t, db.Where("id = ?", id).First(&order).Error)
	return order.Status
}

func available(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.RentalProduct
	require.NoError(t, db.Where("id = ?", id).First(&product).Error)
	return product.AvailableQty
}

func TestTransitionBookingCancel(t *testing.T) {
	ctx := context.Background()
	db := setupOrdersTestDB(t)
	svc, sink := newTestService(t, db)

	booking := seedBooking(t, db, enums.OrderStatusDraft)

	err := svc.Transition(ctx, TransitionInput{
		Ref:    models.OrderRef{Kind: enums.OrderKindBooking, ID: booking.ID},
		Target: enums.OrderStatusCancelled,
		Actor:  visibility.Actor{UserID: booking.UserID, Role: enums.MemberRoleUser},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, bookingStatus(t, db, booking.ID))

	require.Len(t, sink.events, 1)
	require.Equal(t, enums.EventOrderCancelled, sink.events[0].EventType)
	require.Equal(t, booking.ID, sink.events[0].AggregateID)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	ctx := context.Background()
	db := setupOrdersTestDB(t)
	svc, _ := newTestService(t, db)

	booking := seedBooking(t, db, enums.OrderStatusCompleted)

	err := svc.Transition(ctx, TransitionInput{
		Ref:    models.OrderRef{Kind: enums.OrderKindBooking, ID: booking.ID},
		Target: enums.OrderStatusCancelled,
		Actor:  visibility.Actor{UserID: booking.UserID, Role: enums.MemberRoleUser},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	require.Equal(t, enums.OrderStatusCompleted, bookingStatus(t, db, booking.ID))
}

func TestTransitionAlreadyInTargetIsNoOp(t *testing.T) {
	ctx := context.Background()
	db := setupOrdersTestDB(t)
	svc, sink := newTestService(t, db)

	booking := seedBooking(t, db, enums.OrderStatusCancelled)

	// repeating a transition that already landed succeeds without a second
	// status write or event
	err := svc.Transition(ctx, TransitionInput{
		Ref:    models.OrderRef{Kind: enums.OrderKindBooking, ID: booking.ID},
		Target: enums.OrderStatusCancelled,
		Actor:  visibility.Actor{UserID: booking.UserID, Role: enums.MemberRoleUser},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, bookingStatus(t, db, booking.ID))
	require.Empty(t, sink.events)

	order, productID := seedRentalOrder(t, db, enums.OrderStatusActive, 3, 2)
	err = svc.Transition(ctx, TransitionInput{
		Ref:    models.OrderRef{Kind: enums.OrderKindRental, ID: order.ID},
		Target: enums.OrderStatusActive,
		Actor:  visibility.Actor{UserID: order.UserID, Role: enums.MemberRoleUser},
	})
	require.NoError(t, err)
	// stock is not reserved twice
	require.Equal(t, 2, available(t, db, productID))
	require.Empty(t, sink.events)
}

func TestTransitionRejectsDirectConfirm(t *testing.T) {
	ctx := context.Background()
	db := setupOrdersTestDB(t)
	svc, _ := newTestService(t, db)

	booking := seedBooking(t, db, enums.OrderStatusDraft)

	err := svc.Transition(ctx, TransitionInput{
		Ref:    models.OrderRef{Kind: enums.OrderKindBooking, ID: booking.ID},
		Target: enums.OrderStatusConfirmed,
		Actor:  visibility.Actor{UserID: booking.UserID, Role: enums.MemberRoleUser},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
}

func TestTransitionForbiddenForStranger(t *testing.T) {
	ctx := context.Background()
	db := setupOrdersTestDB(t)
	svc, _ := newTestService(t, db)

	booking := seedBooking(t, db, enums.OrderStatusDraft)

	err := svc.Transition(ctx, TransitionInput{
		Ref:    models.OrderRef{Kind: enums.OrderKindBooking, ID: booking.ID},
		Target: enums.OrderStatusCancelled,
		Actor:  visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestTransitionRentalReservesOnActivation(t *testing.T) {
	ctx := context.Background()
	db := setupOrdersTestDB(t)
	svc, _ := newTestService(t, db)

	order, productID := seedRentalOrder(t, db, enums.OrderStatusConfirmed, 3, 5)

	err := svc.Transition(ctx, TransitionInput{
		Ref:    models.OrderRef{Kind: enums.OrderKindRental, ID: order.ID},
		Target: enums.OrderStatusActive,
		Actor:  visibility.Actor{UserID: order.UserID, Role: enums.MemberRoleUser},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusActive, rentalOrderStatus(t, db, order.ID))
	require.Equal(t, 2, available(t, db, productID))
}

func TestTransitionRentalReleasesOnCompletion(t *testing.T) {
	ctx := context.Background()
	db := setupOrdersTestDB(t)
	svc, _ := newTestService(t, db)

	order, productID := seedRentalOrder(t, db, enums.OrderStatusActive, 3, 2)

	err := svc.Transition(ctx, TransitionInput{
		Ref:    models.OrderRef{Kind: enums.OrderKindRental, ID: order.ID},
		Target: enums.OrderStatusCompleted,
		Actor:  visibility.Actor{UserID: order.UserID, Role: enums.MemberRoleUser},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCompleted, rentalOrderStatus(t, db, order.ID))
	require.Equal(t, 5, available(t, db, productID))
}

func TestTransitionRentalShortageRollsBackStatus(t *testing.T) {
	ctx := context.Background()
	db := setupOrdersTestDB(t)
	svc, _ := newTestService(t, db)

	order, productID := seedRentalOrder(t, db, enums.OrderStatusConfirmed, 4, 2)

	err := svc.Transition(ctx, TransitionInput{
		Ref:    models.OrderRef{Kind: enums.OrderKindRental, ID: order.ID},
		Target: enums.OrderStatusActive,
		Actor:  visibility.Actor{UserID: order.UserID, Role: enums.MemberRoleUser},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	// the whole transaction rolls back: status and stock untouched
	require.Equal(t, enums.OrderStatusConfirmed, rentalOrderStatus(t, db, order.ID))
	require.Equal(t, 2, available(t, db, productID))
}

func TestTransitionOverdueResolutionReleasesStock(t *testing.T) {
	ctx := context.Background()
	db := setupOrdersTestDB(t)
	svc, sink := newTestService(t, db)

	order, productID := seedRentalOrder(t, db, enums.OrderStatusOverdue, 3, 2)

	err := svc.Transition(ctx, TransitionInput{
		Ref:    models.OrderRef{Kind: enums.OrderKindRental, ID: order.ID},
		Target: enums.OrderStatusCancelled,
		Actor:  visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin},
	})
	require.NoError(t, err)
	require.Equal(t, 5, available(t, db, productID))
	require.Len(t, sink.events, 1)
	require.Equal(t, enums.EventOrderCancelled, sink.events[0].EventType)
}

func TestAttachPaymentTx(t *testing.T) {
	ctx := context.Background()
	db := setupOrdersTestDB(t)
	svc, _ := newTestService(t, db)

	booking := seedBooking(t, db, enums.OrderStatusDraft)
	ref := models.OrderRef{Kind: enums.OrderKindBooking, ID: booking.ID}
	paymentID := uuid.New()

	require.NoError(t, svc.AttachPaymentTx(ctx, db, ref, paymentID))
	// re-attaching the same payment is idempotent
	require.NoError(t, svc.AttachPaymentTx(ctx, db, ref, paymentID))

	err := svc.AttachPaymentTx(ctx, db, ref, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	db := setupOrdersTestDB(t)
	svc, _ := newTestService(t, db)

	t.Run("draft booking deletable by owner", func(t *testing.T) {
		booking := seedBooking(t, db, enums.OrderStatusDraft)
		err := svc.Delete(ctx, DeleteInput{
			Ref:   models.OrderRef{Kind: enums.OrderKindBooking, ID: booking.ID},
			Actor: visibility.Actor{UserID: booking.UserID, Role: enums.MemberRoleUser},
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&models.Booking{}).Where("id = ?", booking.ID).Count(&count).Error)
		require.Zero(t, count)
	})

	t.Run("confirmed order refuses deletion", func(t *testing.T) {
		booking := seedBooking(t, db, enums.OrderStatusConfirmed)
		err := svc.Delete(ctx, DeleteInput{
			Ref:   models.OrderRef{Kind: enums.OrderKindBooking, ID: booking.ID},
			Actor: visibility.Actor{UserID: booking.UserID, Role: enums.MemberRoleUser},
		})
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		booking := seedBooking(t, db, enums.OrderStatusDraft)
		err := svc.Delete(ctx, DeleteInput{
			Ref:   models.OrderRef{Kind: enums.OrderKindBooking, ID: booking.ID},
			Actor: visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser},
		})
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	})

	t.Run("cancelled rental order deletes items", func(t *testing.T) {
		order, _ := seedRentalOrder(t, db, enums.OrderStatusCancelled, 2, 5)
		err := svc.Delete(ctx, DeleteInput{
			Ref:   models.OrderRef{Kind: enums.OrderKindRental, ID: order.ID},
			Actor: visibility.Actor{UserID: order.UserID, Role: enums.MemberRoleUser},
		})
		require.NoError(t, err)

		var items int64
		require.NoError(t, db.Model(&models.RentalOrderItem{}).Where("rental_order_id = ?", order.ID).Count(&items).Error)
		require.Zero(t, items)
	})
}

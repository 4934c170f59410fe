package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/internal/inventory"
	"github.com/courtside-app/courtside-backend/internal/orders"
	"github.com/courtside-app/courtside-backend/internal/payments"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/outbox"
	"github.com/courtside-app/courtside-backend/pkg/razorpay"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

const testKeySecret = "test-secret"

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

type stubSecrets struct{}

func (stubSecrets) KeySecret() string { return testKeySecret }

func setupReconcileTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  order_kind TEXT NOT NULL,
  booking_id TEXT,
  rental_order_id TEXT,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  provider TEXT NOT NULL,
  provider_order_id TEXT NOT NULL,
  provider_payment_id TEXT,
  provider_signature TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  refund_type TEXT,
  original_payment_id TEXT,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type fixture struct {
	db       *gorm.DB
	payments payments.Repository
	svc      Service
	sink     *stubOutbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupReconcileTestDB(t)
	sink := &stubOutbox{}
	ordersSvc, err := orders.NewService(orders.NewRepository(db), gormTxRunner{db: db}, sink, inventory.NewService())
	require.NoError(t, err)

	paymentsRepo := payments.NewRepository(db)
	svc, err := NewService(paymentsRepo, ordersSvc, gormTxRunner{db: db}, sink, stubSecrets{}, nil, nil)
	require.NoError(t, err)

	return &fixture{db: db, payments: paymentsRepo, svc: svc, sink: sink}
}

func (f *fixture) seedPendingPayment(t *testing.T, providerOrderID string) (*models.Booking, *models.Payment) {
	t.Helper()

	booking := &models.Booking{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		CourtID:    uuid.New(),
		StartsAt:   time.Now().Add(time.Hour),
		EndsAt:     time.Now().Add(2 * time.Hour),
		TotalCents: 5000,
		Status:     enums.OrderStatusDraft,
	}
	require.NoError(t, f.db.Create(booking).Error)

	payment := &models.Payment{
		ID:              uuid.New(),
		UserID:          booking.UserID,
		OrderKind:       enums.OrderKindBooking,
		BookingID:       &booking.ID,
		AmountCents:     5000,
		Currency:        "INR",
		Provider:        enums.PaymentProviderRazorpay,
		ProviderOrderID: providerOrderID,
		Status:          enums.PaymentStatusPending,
	}
	require.NoError(t, f.db.Create(payment).Error)
	return booking, payment
}

func (f *fixture) bookingStatus(t *testing.T, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var booking models.Booking
	require.NoError(t, f.db.Where("id = ?", id).First(&booking).Error)
	return booking.Status
}

func (f *fixture) eventsOfType(eventType enums.OutboxEventType) []outbox.DomainEvent {
	var matched []outbox.DomainEvent
	for _, ev := range f.sink.events {
		if ev.EventType == eventType {
			matched = append(matched, ev)
		}
	}
	return matched
}

func TestVerifyPaymentConfirmsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	booking, payment := f.seedPendingPayment(t, "order_client")

	sig := razorpay.SignPayment("order_client", "pay_client", testKeySecret)
	verified, err := f.svc.VerifyPayment(ctx, VerifyInput{
		Actor:             visibility.Actor{UserID: booking.UserID, Role: enums.MemberRoleUser},
		ProviderOrderID:   "order_client",
		ProviderPaymentID: "pay_client",
		Signature:         sig,
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, verified.Status)
	require.Equal(t, "pay_client", *verified.ProviderPaymentID)

	require.Equal(t, enums.OrderStatusConfirmed, f.bookingStatus(t, booking.ID))

	var stored models.Booking
	require.NoError(t, f.db.Where("id = ?", booking.ID).First(&stored).Error)
	require.NotNil(t, stored.PaymentID)
	require.Equal(t, payment.ID, *stored.PaymentID)

	confirmed := f.eventsOfType(enums.EventPaymentConfirmed)
	require.Len(t, confirmed, 1)
	require.Equal(t, payment.ID, confirmed[0].AggregateID)
}

func TestWebhookCaptureConfirmsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	booking, payment := f.seedPendingPayment(t, "order_hook")

	require.NoError(t, f.svc.HandleProviderCapture(ctx, "order_hook", "pay_hook"))

	stored, err := f.payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, stored.Status)
	require.Equal(t, "pay_hook", *stored.ProviderPaymentID)
	require.Equal(t, enums.OrderStatusConfirmed, f.bookingStatus(t, booking.ID))
	require.Len(t, f.eventsOfType(enums.EventPaymentConfirmed), 1)
}

func TestWebhookAfterClientVerifyIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	booking, _ := f.seedPendingPayment(t, "order_race")

	sig := razorpay.SignPayment("order_race", "pay_race", testKeySecret)
	_, err := f.svc.VerifyPayment(ctx, VerifyInput{
		Actor:             visibility.Actor{UserID: booking.UserID, Role: enums.MemberRoleUser},
		ProviderOrderID:   "order_race",
		ProviderPaymentID: "pay_race",
		Signature:         sig,
	})
	require.NoError(t, err)

	// the delayed webhook for the same capture converges silently
	require.NoError(t, f.svc.HandleProviderCapture(ctx, "order_race", "pay_race"))

	require.Equal(t, enums.OrderStatusConfirmed, f.bookingStatus(t, booking.ID))
	require.Len(t, f.eventsOfType(enums.EventPaymentConfirmed), 1)
}

func TestClientVerifyAfterWebhookAlreadyVerified(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	booking, payment := f.seedPendingPayment(t, "order_race2")

	require.NoError(t, f.svc.HandleProviderCapture(ctx, "order_race2", "pay_race2"))

	sig := razorpay.SignPayment("order_race2", "pay_race2", testKeySecret)
	_, err := f.svc.VerifyPayment(ctx, VerifyInput{
		Actor:             visibility.Actor{UserID: booking.UserID, Role: enums.MemberRoleUser},
		ProviderOrderID:   "order_race2",
		ProviderPaymentID: "pay_race2",
		Signature:         sig,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyVerified))

	stored, err := f.payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, stored.Status)
	require.Len(t, f.eventsOfType(enums.EventPaymentConfirmed), 1)
}

func TestVerifyPaymentSignatureMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	booking, payment := f.seedPendingPayment(t, "order_bad")

	_, err := f.svc.VerifyPayment(ctx, VerifyInput{
		Actor:             visibility.Actor{UserID: booking.UserID, Role: enums.MemberRoleUser},
		ProviderOrderID:   "order_bad",
		ProviderPaymentID: "pay_bad",
		Signature:         "not-the-signature",
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeVerification))

	stored, findErr := f.payments.FindByID(ctx, payment.ID)
	require.NoError(t, findErr)
	require.Equal(t, enums.PaymentStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	require.Equal(t, "signature mismatch", *stored.FailureReason)
	require.NotNil(t, stored.ProviderPaymentID)
	require.Equal(t, "pay_bad", *stored.ProviderPaymentID)
	require.NotNil(t, stored.ProviderSignature)
	require.Equal(t, "not-the-signature", *stored.ProviderSignature)

	require.Equal(t, enums.OrderStatusDraft, f.bookingStatus(t, booking.ID))
	require.Len(t, f.eventsOfType(enums.EventPaymentFailed), 1)
}

func TestVerifyPaymentUnknownProviderOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sig := razorpay.SignPayment("order_unknown", "pay_unknown", testKeySecret)
	_, err := f.svc.VerifyPayment(ctx, VerifyInput{
		Actor:             visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser},
		ProviderOrderID:   "order_unknown",
		ProviderPaymentID: "pay_unknown",
		Signature:         sig,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestVerifyPaymentStranger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedPendingPayment(t, "order_owned")

	sig := razorpay.SignPayment("order_owned", "pay_owned", testKeySecret)
	_, err := f.svc.VerifyPayment(ctx, VerifyInput{
		Actor:             visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser},
		ProviderOrderID:   "order_owned",
		ProviderPaymentID: "pay_owned",
		Signature:         sig,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestProviderFailureMarksPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	booking, payment := f.seedPendingPayment(t, "order_fail")

	require.NoError(t, f.svc.HandleProviderFailure(ctx, "order_fail", "pay_fail", "card declined"))

	stored, err := f.payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusFailed, stored.Status)
	require.Equal(t, "card declined", *stored.FailureReason)
	require.Equal(t, enums.OrderStatusDraft, f.bookingStatus(t, booking.ID))
	require.Len(t, f.eventsOfType(enums.EventPaymentFailed), 1)
}

func TestProviderFailureAfterCaptureIsStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	booking, payment := f.seedPendingPayment(t, "order_late")

	require.NoError(t, f.svc.HandleProviderCapture(ctx, "order_late", "pay_late"))
	require.NoError(t, f.svc.HandleProviderFailure(ctx, "order_late", "pay_late", "card declined"))

	stored, err := f.payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, stored.Status)
	require.Equal(t, enums.OrderStatusConfirmed, f.bookingStatus(t, booking.ID))
	require.Empty(t, f.eventsOfType(enums.EventPaymentFailed))
}

func TestSweepRepairsStuckPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	booking, payment := f.seedPendingPayment(t, "order_stuck")

	// a crash after the provider confirmed but before the order transition
	// leaves a completed payment against a draft order
	require.NoError(t, f.db.Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Updates(map[string]any{
			"status":              enums.PaymentStatusCompleted,
			"provider_payment_id": "pay_stuck",
		}).Error)

	repaired, err := f.svc.SweepStuckPayments(ctx, 72*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, repaired)

	require.Equal(t, enums.OrderStatusConfirmed, f.bookingStatus(t, booking.ID))
	var stored models.Booking
	require.NoError(t, f.db.Where("id = ?", booking.ID).First(&stored).Error)
	require.Equal(t, payment.ID, *stored.PaymentID)
	require.Len(t, f.eventsOfType(enums.EventPaymentConfirmed), 1)

	// a second sweep finds nothing left to repair
	repaired, err = f.svc.SweepStuckPayments(ctx, 72*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 0, repaired)
}

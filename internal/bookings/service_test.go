package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/internal/catalog"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/pagination"
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

func setupBookingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
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
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db), catalog.NewRepository(db), gormTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func seedCourt(t *testing.T, db *gorm.DB, hourRateCents int) (courtID, ownerID uuid.UUID) {
	t.Helper()

	facility := models.Facility{
		ID:          uuid.New(),
		OwnerUserID: uuid.New(),
		Name:        "downtown sports hub",
	}
	require.NoError(t, db.Create(&facility).Error)

	court := models.Court{
		ID:            uuid.New(),
		FacilityID:    facility.ID,
		Name:          "court 1",
		Sport:         "badminton",
		HourRateCents: hourRateCents,
	}
	require.NoError(t, db.Create(&court).Error)
	return court.ID, facility.OwnerUserID
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()
	db := setupBookingsTestDB(t)
	svc := newTestService(t, db)
	courtID, _ := seedCourt(t, db, 60000)

	actor := visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser}
	startsAt := time.Now().Add(24 * time.Hour).Truncate(time.Minute)

	booking, err := svc.Create(ctx, CreateInput{
		Actor:    actor,
		CourtID:  courtID,
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDraft, booking.Status)
	require.Equal(t, 90000, booking.TotalCents)
	require.Equal(t, actor.UserID, booking.UserID)
}

func TestCreateBookingRejectsInvertedWindow(t *testing.T) {
	ctx := context.Background()
	db := setupBookingsTestDB(t)
	svc := newTestService(t, db)
	courtID, _ := seedCourt(t, db, 60000)

	startsAt := time.Now().Add(24 * time.Hour)
	_, err := svc.Create(ctx, CreateInput{
		Actor:    visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser},
		CourtID:  courtID,
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(-time.Hour),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	db := setupBookingsTestDB(t)
	svc := newTestService(t, db)
	courtID, _ := seedCourt(t, db, 60000)

	startsAt := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	first, err := svc.Create(ctx, CreateInput{
		Actor:    visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser},
		CourtID:  courtID,
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{
		Actor:    visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser},
		CourtID:  courtID,
		StartsAt: startsAt.Add(30 * time.Minute),
		EndsAt:   startsAt.Add(90 * time.Minute),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	// back-to-back slots on the half-open window are fine
	_, err = svc.Create(ctx, CreateInput{
		Actor:    visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser},
		CourtID:  courtID,
		StartsAt: first.EndsAt,
		EndsAt:   first.EndsAt.Add(time.Hour),
	})
	require.NoError(t, err)
}

func TestCreateBookingIgnoresCancelledOverlap(t *testing.T) {
	ctx := context.Background()
	db := setupBookingsTestDB(t)
	svc := newTestService(t, db)
	courtID, _ := seedCourt(t, db, 60000)

	startsAt := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	booking, err := svc.Create(ctx, CreateInput{
		Actor:    visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser},
		CourtID:  courtID,
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Booking{}).
		Where("id = ?", booking.ID).
		Update("status", enums.OrderStatusCancelled).Error)

	_, err = svc.Create(ctx, CreateInput{
		Actor:    visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser},
		CourtID:  courtID,
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(time.Hour),
	})
	require.NoError(t, err)
}

func TestGetBookingAccess(t *testing.T) {
	ctx := context.Background()
	db := setupBookingsTestDB(t)
	svc := newTestService(t, db)
	courtID, facilityOwnerID := seedCourt(t, db, 60000)

	owner := visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser}
	startsAt := time.Now().Add(24 * time.Hour)
	booking, err := svc.Create(ctx, CreateInput{
		Actor:    owner,
		CourtID:  courtID,
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, owner, booking.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, visibility.Actor{UserID: facilityOwnerID, Role: enums.MemberRoleFacilityOwner}, booking.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser}, booking.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestListBookingsPaginates(t *testing.T) {
	ctx := context.Background()
	db := setupBookingsTestDB(t)
	svc := newTestService(t, db)
	courtID, _ := seedCourt(t, db, 60000)

	actor := visibility.Actor{UserID: uuid.New(), Role: enums.MemberRoleUser}
	base := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * 2 * time.Hour)
		_, err := svc.Create(ctx, CreateInput{
			Actor:    actor,
			CourtID:  courtID,
			StartsAt: start,
			EndsAt:   start.Add(time.Hour),
		})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, actor, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Bookings, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.List(ctx, actor, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Bookings, 1)
	require.Empty(t, rest.NextCursor)
}

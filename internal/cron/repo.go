package cron

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
)

// Repository finds the orders the housekeeping jobs act on.
type Repository interface {
	FindBookingsToActivate(ctx context.Context, now time.Time) ([]models.OrderRef, error)
	FindRentalOrdersToActivate(ctx context.Context, now time.Time) ([]models.OrderRef, error)
	FindBookingsToComplete(ctx context.Context, now time.Time) ([]models.OrderRef, error)
	FindRentalOrdersPastDue(ctx context.Context, now time.Time) ([]models.OrderRef, error)
	FindStaleDrafts(ctx context.Context, before time.Time) ([]models.OrderRef, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cron repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindBookingsToActivate(ctx context.Context, now time.Time) ([]models.OrderRef, error) {
	return r.bookingRefs(ctx, "status = ? AND starts_at <= ? AND ends_at > ?",
		enums.OrderStatusConfirmed, now, now)
}

func (r *repository) FindRentalOrdersToActivate(ctx context.Context, now time.Time) ([]models.OrderRef, error) {
	return r.rentalRefs(ctx, "status = ? AND start_date <= ?", enums.OrderStatusConfirmed, now)
}

func (r *repository) FindBookingsToComplete(ctx context.Context, now time.Time) ([]models.OrderRef, error) {
	return r.bookingRefs(ctx, "status = ? AND ends_at <= ?", enums.OrderStatusActive, now)
}

func (r *repository) FindRentalOrdersPastDue(ctx context.Context, now time.Time) ([]models.OrderRef, error) {
	return r.rentalRefs(ctx, "status = ? AND end_date <= ?", enums.OrderStatusActive, now)
}

// FindStaleDrafts returns draft orders older than the TTL cutoff, both
// kinds, so abandoned checkouts stop holding court windows.
func (r *repository) FindStaleDrafts(ctx context.Context, before time.Time) ([]models.OrderRef, error) {
	bookings, err := r.bookingRefs(ctx, "status = ? AND created_at < ?", enums.OrderStatusDraft, before)
	if err != nil {
		return nil, err
	}
	rentals, err := r.rentalRefs(ctx, "status = ? AND created_at < ?", enums.OrderStatusDraft, before)
	if err != nil {
		return nil, err
	}
	return append(bookings, rentals...), nil
}

func (r *repository) bookingRefs(ctx context.Context, query string, args ...any) ([]models.OrderRef, error) {
	var rows []models.Booking
	if err := r.db.WithContext(ctx).Select("id").Where(query, args...).Find(&rows).Error; err != nil {
		return nil, err
	}
	refs := make([]models.OrderRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, models.OrderRef{Kind: enums.OrderKindBooking, ID: row.ID})
	}
	return refs, nil
}

func (r *repository) rentalRefs(ctx context.Context, query string, args ...any) ([]models.OrderRef, error) {
	var rows []models.RentalOrder
	if err := r.db.WithContext(ctx).Select("id").Where(query, args...).Find(&rows).Error; err != nil {
		return nil, err
	}
	refs := make([]models.OrderRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, models.OrderRef{Kind: enums.OrderKindRental, ID: row.ID})
	}
	return refs, nil
}

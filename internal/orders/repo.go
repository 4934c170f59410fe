package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
)

// Repository reads and conditionally mutates both order tables. Status and
// payment attachment updates are compare-and-set so racing writers cannot
// double-apply an edge.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	FindRentalOrder(ctx context.Context, id uuid.UUID) (*models.RentalOrder, error)

	UpdateBookingStatusIf(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error)
	UpdateRentalOrderStatusIf(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error)

	AttachBookingPayment(ctx context.Context, id, paymentID uuid.UUID) (bool, error)
	AttachRentalOrderPayment(ctx context.Context, id, paymentID uuid.UUID) (bool, error)

	DeleteBooking(ctx context.Context, id uuid.UUID) error
	DeleteRentalOrder(ctx context.Context, id uuid.UUID) error

	FacilityOwnerForBooking(ctx context.Context, bookingID uuid.UUID) (uuid.UUID, error)
	FacilityOwnerForRentalOrder(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) FindRentalOrder(ctx context.Context, id uuid.UUID) (*models.RentalOrder, error) {
	var order models.RentalOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateBookingStatusIf(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) UpdateRentalOrderStatusIf(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RentalOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to})
	return res.RowsAffected > 0, res.Error
}

// AttachBookingPayment links a payment to the booking exactly once.
func (r *repository) AttachBookingPayment(ctx context.Context, id, paymentID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND (payment_id IS NULL OR payment_id = ?)", id, paymentID).
		Updates(map[string]any{"payment_id": paymentID})
	return res.RowsAffected > 0, res.Error
}

// AttachRentalOrderPayment links a payment to the rental order exactly once.
func (r *repository) AttachRentalOrderPayment(ctx context.Context, id, paymentID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RentalOrder{}).
		Where("id = ? AND (payment_id IS NULL OR payment_id = ?)", id, paymentID).
		Updates(map[string]any{"payment_id": paymentID})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Booking{}).Error
}

func (r *repository) DeleteRentalOrder(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("rental_order_id = ?", id).
		Delete(&models.RentalOrderItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RentalOrder{}).Error
}

func (r *repository) FacilityOwnerForBooking(ctx context.Context, bookingID uuid.UUID) (uuid.UUID, error) {
	var row struct {
		OwnerUserID uuid.UUID
	}
	res := r.db.WithContext(ctx).Raw(`
		SELECT f.owner_user_id
		FROM facilities f
		JOIN courts c ON c.facility_id = f.id
		JOIN bookings b ON b.court_id = c.id
		WHERE b.id = ?
	`, bookingID).Scan(&row)
	if res.Error != nil {
		return uuid.Nil, res.Error
	}
	if res.RowsAffected == 0 {
		return uuid.Nil, gorm.ErrRecordNotFound
	}
	return row.OwnerUserID, nil
}

func (r *repository) FacilityOwnerForRentalOrder(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	var row struct {
		OwnerUserID uuid.UUID
	}
	res := r.db.WithContext(ctx).Raw(`
		SELECT f.owner_user_id
		FROM facilities f
		JOIN rental_orders o ON o.facility_id = f.id
		WHERE o.id = ?
	`, orderID).Scan(&row)
	if res.Error != nil {
		return uuid.Nil, res.Error
	}
	if res.RowsAffected == 0 {
		return uuid.Nil, gorm.ErrRecordNotFound
	}
	return row.OwnerUserID, nil
}

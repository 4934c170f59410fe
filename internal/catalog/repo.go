package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
)

// Repository reads facilities, courts and rental products for the order
// creation flows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindFacility(ctx context.Context, id uuid.UUID) (*models.Facility, error)
	FindCourt(ctx context.Context, id uuid.UUID) (*models.Court, error)
	FindRentalProduct(ctx context.Context, id uuid.UUID) (*models.RentalProduct, error)
	CourtHasOverlap(ctx context.Context, courtID uuid.UUID, startsAt, endsAt time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindFacility(ctx context.Context, id uuid.UUID) (*models.Facility, error) {
	var facility models.Facility
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&facility).Error
	if err != nil {
		return nil, err
	}
	return &facility, nil
}

func (r *repository) FindCourt(ctx context.Context, id uuid.UUID) (*models.Court, error) {
	var court models.Court
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&court).Error
	if err != nil {
		return nil, err
	}
	return &court, nil
}

func (r *repository) FindRentalProduct(ctx context.Context, id uuid.UUID) (*models.RentalProduct, error) {
	var product models.RentalProduct
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CourtHasOverlap reports whether any live booking intersects the half-open
// window [startsAt, endsAt). Cancelled and completed bookings do not block
// the slot.
func (r *repository) CourtHasOverlap(ctx context.Context, courtID uuid.UUID, startsAt, endsAt time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("court_id = ?", courtID).
		Where("status IN ?", []enums.OrderStatus{
			enums.OrderStatusDraft,
			enums.OrderStatusConfirmed,
			enums.OrderStatusActive,
			enums.OrderStatusOverdue,
		}).
		Where("starts_at < ? AND ends_at > ?", endsAt, startsAt).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

package razorpay

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
)

// Repository appends webhook audit rows.
type Repository interface {
	Insert(ctx context.Context, event *models.WebhookEvent) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a webhook audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, event *models.WebhookEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

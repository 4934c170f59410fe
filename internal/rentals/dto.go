package rentals

import (
	"time"

	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

// LineInput is one requested product line on a rental order.
type LineInput struct {
	ProductID uuid.UUID
	Qty       int
}

// CreateInput carries a multi-day equipment rental request. Dates are
// inclusive of StartDate and exclusive of EndDate.
type CreateInput struct {
	Actor     visibility.Actor
	StartDate time.Time
	EndDate   time.Time
	Lines     []LineInput
}

// List is one page of rental orders plus the cursor for the next page.
type List struct {
	Orders     []models.RentalOrder `json:"orders"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

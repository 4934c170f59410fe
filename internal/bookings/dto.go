package bookings

import (
	"time"

	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

// CreateInput carries a court reservation request. The window is half-open:
// [StartsAt, EndsAt).
type CreateInput struct {
	Actor    visibility.Actor
	CourtID  uuid.UUID
	StartsAt time.Time
	EndsAt   time.Time
}

// List is one page of bookings plus the cursor for the next page.
type List struct {
	Bookings   []models.Booking `json:"bookings"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

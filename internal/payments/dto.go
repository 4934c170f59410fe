package payments

import (
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

// CreateInput starts a checkout for a draft order.
type CreateInput struct {
	Actor visibility.Actor
	Ref   models.OrderRef
}

// Checkout is what the client needs to open the provider's payment sheet.
type Checkout struct {
	Payment         *models.Payment `json:"payment"`
	ProviderOrderID string          `json:"provider_order_id"`
	KeyID           string          `json:"key_id"`
	AmountCents     int64           `json:"amount_cents"`
	Currency        string          `json:"currency"`
}

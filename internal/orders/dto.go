package orders

import (
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

// TransitionInput carries a caller-initiated lifecycle change.
type TransitionInput struct {
	Ref    models.OrderRef
	Target enums.OrderStatus
	Actor  visibility.Actor
}

// DeleteInput carries a hard-delete request. Only draft and cancelled orders
// may be removed.
type DeleteInput struct {
	Ref   models.OrderRef
	Actor visibility.Actor
}

// OrderCancelledEvent fans out when an order reaches cancelled.
type OrderCancelledEvent struct {
	OrderKind enums.OrderKind   `json:"order_kind"`
	OrderID   string            `json:"order_id"`
	UserID    string            `json:"user_id"`
	From      enums.OrderStatus `json:"from"`
}

// OrderOverdueEvent fans out when an active order misses its return window.
type OrderOverdueEvent struct {
	OrderKind enums.OrderKind `json:"order_kind"`
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
}

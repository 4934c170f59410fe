package orders

import (
	"fmt"

	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
)

// InventoryEffect describes what a status transition does to reserved stock.
type InventoryEffect int

const (
	EffectNone InventoryEffect = iota
	// EffectReserve takes line-item stock out of the pool.
	EffectReserve
	// EffectRelease returns line-item stock to the pool.
	EffectRelease
)

// ValidateTransition rejects anything outside the lifecycle graph. Terminal
// states (completed, cancelled) have no outgoing edges. Callers short-circuit
// an order already in the target state before validating, so a repeated
// transition stays a no-op instead of an error.
func ValidateTransition(current, target enums.OrderStatus) error {
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", target))
	}
	if !current.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("order has unknown status %q", current))
	}
	if !current.CanTransitionTo(target) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition disallowed").
			WithDetails(map[string]any{
				"from": current.String(),
				"to":   target.String(),
			})
	}
	return nil
}

// EffectFor maps a legal transition to its inventory side effect. Stock is
// held from active onward: entering active reserves, leaving active or
// overdue for a terminal state releases. An overdue order keeps its stock
// out until it is resolved.
func EffectFor(from, to enums.OrderStatus) InventoryEffect {
	switch {
	case to == enums.OrderStatusActive:
		return EffectReserve
	case from == enums.OrderStatusActive && to == enums.OrderStatusCompleted:
		return EffectRelease
	case from == enums.OrderStatusOverdue:
		return EffectRelease
	}
	return EffectNone
}

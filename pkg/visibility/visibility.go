package visibility

import (
	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
)

// Actor identifies the authenticated caller for access checks.
type Actor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// OrderAccessInput drives the shared access predicate for order-scoped
// operations. OwnerID is the customer who placed the order and
// FacilityOwnerID owns the facility the order is against.
type OrderAccessInput struct {
	Actor           Actor
	OwnerID         uuid.UUID
	FacilityOwnerID uuid.UUID
}

// EnsureOrderAccess enforces the canonical rule for reading or mutating an
// order: the customer who owns it, the owner of its facility, or an admin.
func EnsureOrderAccess(input OrderAccessInput) error {
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.Actor.Role == enums.MemberRoleAdmin {
		return nil
	}
	if input.Actor.UserID == input.OwnerID {
		return nil
	}
	if input.Actor.Role == enums.MemberRoleFacilityOwner && input.Actor.UserID == input.FacilityOwnerID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to the caller")
}

// EnsureFacilityManagement enforces the rule for facility-scoped mutations
// such as issuing refunds or cancelling on behalf of the facility.
func EnsureFacilityManagement(actor Actor, facilityOwnerID uuid.UUID) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.Role == enums.MemberRoleAdmin {
		return nil
	}
	if actor.Role == enums.MemberRoleFacilityOwner && actor.UserID == facilityOwnerID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "facility does not belong to the caller")
}

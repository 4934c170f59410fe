package visibility

import (
	"testing"

	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/enums"
	"github.com/courtside-app/courtside-backend/pkg/errors"
)

func TestEnsureOrderAccess(t *testing.T) {
	owner := uuid.New()
	facilityOwner := uuid.New()
	stranger := uuid.New()

	base := OrderAccessInput{OwnerID: owner, FacilityOwnerID: facilityOwner}

	t.Run("anonymous", func(t *testing.T) {
		err := EnsureOrderAccess(base)
		if !errors.IsCode(err, errors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
	t.Run("owner", func(t *testing.T) {
		input := base
		input.Actor = Actor{UserID: owner, Role: enums.MemberRoleUser}
		if err := EnsureOrderAccess(input); err != nil {
			t.Fatalf("expected owner access, got %v", err)
		}
	})
	t.Run("facility owner", func(t *testing.T) {
		input := base
		input.Actor = Actor{UserID: facilityOwner, Role: enums.MemberRoleFacilityOwner}
		if err := EnsureOrderAccess(input); err != nil {
			t.Fatalf("expected facility owner access, got %v", err)
		}
	})
	t.Run("facility owner id without role", func(t *testing.T) {
		input := base
		input.Actor = Actor{UserID: facilityOwner, Role: enums.MemberRoleUser}
		err := EnsureOrderAccess(input)
		if !errors.IsCode(err, errors.CodeForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
	t.Run("admin", func(t *testing.T) {
		input := base
		input.Actor = Actor{UserID: stranger, Role: enums.MemberRoleAdmin}
		if err := EnsureOrderAccess(input); err != nil {
			t.Fatalf("expected admin access, got %v", err)
		}
	})
	t.Run("stranger", func(t *testing.T) {
		input := base
		input.Actor = Actor{UserID: stranger, Role: enums.MemberRoleUser}
		err := EnsureOrderAccess(input)
		if !errors.IsCode(err, errors.CodeForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

func TestEnsureFacilityManagement(t *testing.T) {
	facilityOwner := uuid.New()

	if err := EnsureFacilityManagement(Actor{UserID: facilityOwner, Role: enums.MemberRoleFacilityOwner}, facilityOwner); err != nil {
		t.Fatalf("expected facility owner access, got %v", err)
	}
	if err := EnsureFacilityManagement(Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin}, facilityOwner); err != nil {
		t.Fatalf("expected admin access, got %v", err)
	}
	err := EnsureFacilityManagement(Actor{UserID: uuid.New(), Role: enums.MemberRoleFacilityOwner}, facilityOwner)
	if !errors.IsCode(err, errors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	err = EnsureFacilityManagement(Actor{}, facilityOwner)
	if !errors.IsCode(err, errors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/enums"
	"github.com/courtside-app/courtside-backend/pkg/visibility"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext rebuilds the caller identity seeded by the auth
// middleware. An unauthenticated request yields the zero actor.
func ActorFromContext(ctx context.Context) visibility.Actor {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return visibility.Actor{}
	}
	role, err := enums.ParseMemberRole(RoleFromContext(ctx))
	if err != nil {
		role = enums.MemberRoleUser
	}
	return visibility.Actor{UserID: userID, Role: role}
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

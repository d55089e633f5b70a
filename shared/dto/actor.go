package dto

import (
	"context"
	"slices"
	"thakajabe/shared/constant"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool {
	return slices.Contains([]string{constant.RoleAdmin, constant.RoleSuperAdmin}, a.Role)
}

func (a Actor) IsSystem() bool {
	return a.Role == constant.RoleSystem
}

// Is reports whether the actor is the given user.
func (a Actor) Is(userID string) bool {
	return a.UserID != constant.Empty && a.UserID == userID
}

// ActorFromContext reads the caller placed in the context by the auth middleware.
func ActorFromContext(ctx context.Context) Actor {
	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	return Actor{UserID: userID, Role: role}
}

// WithActor returns a context carrying the given actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	ctx = context.WithValue(ctx, constant.ContextKeyUserID, actor.UserID)

	return context.WithValue(ctx, constant.ContextKeyUserRole, actor.Role)
}

package middleware

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/housebook/housebook-backend/pkg/enums"
)

type principalKey struct{}

// Principal is who the bearer token says is calling. Roles are a routing
// hint; services resolve profiles from the database.
type Principal struct {
	UserID   uuid.UUID
	Roles    []enums.ActorRole
	AccessID string
}

func (p Principal) HasRole(role enums.ActorRole) bool {
	return slices.Contains(p.Roles, role)
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != uuid.Nil
}

// UserUUIDFromContext is false for unauthenticated requests.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFrom(ctx)
	return p.UserID, ok
}

// WithUserID marks ctx as authenticated for userID with no roles.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return WithPrincipal(ctx, Principal{UserID: userID})
}

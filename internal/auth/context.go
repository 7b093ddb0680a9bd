package auth

import (
	"context"

	"github.com/dukerupert/slotshare/internal/model"
)

type contextKey struct{}

// AuthContext is the signed-in identity and its resolved role for one request.
type AuthContext struct {
	UserID    string
	Role      string
	SessionID string
}

func (ac AuthContext) IsAdmin() bool {
	return ac.Role == model.RoleAdmin
}

// CanSell reports whether the identity may create and manage listings.
func (ac AuthContext) CanSell() bool {
	return ac.Role == model.RoleSeller || ac.Role == model.RoleAdmin
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.IsAdmin()
}

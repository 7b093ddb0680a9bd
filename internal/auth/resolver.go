package auth

import (
	"github.com/dukerupert/slotshare/internal/model"
)

// RoleLookup returns the stored role for an identity, or "" when the
// identity has no profile row yet.
type RoleLookup interface {
	GetRole(id string) (string, error)
}

// RoleResolver derives the role of a signed-in identity. It is re-run on
// every identity change, so nothing is cached.
type RoleResolver struct {
	profiles RoleLookup
}

func NewRoleResolver(profiles RoleLookup) *RoleResolver {
	return &RoleResolver{profiles: profiles}
}

// Resolve returns the profile role, defaulting to buyer when no profile
// exists or the stored value is not a known role.
func (r *RoleResolver) Resolve(userID string) (string, error) {
	role, err := r.profiles.GetRole(userID)
	if err != nil {
		return "", err
	}
	if !model.ValidRole(role) {
		return model.RoleBuyer, nil
	}
	return role, nil
}

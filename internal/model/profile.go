package model

import "time"

const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
	RoleBuyer  = "buyer"
)

// ValidRole reports whether role is one of the three profile roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSeller, RoleBuyer:
		return true
	}
	return false
}

type Profile struct {
	ID         string    `json:"id"`
	Username   *string   `json:"username"`
	FullName   *string   `json:"full_name"`
	Role       string    `json:"role"`
	WhatsApp   *string   `json:"whatsapp"`
	Balance    int64     `json:"balance"`
	TrustScore int       `json:"trust_score"`
	CreatedAt  time.Time `json:"created_at"`
}

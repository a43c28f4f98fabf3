package models

import "github.com/golang-jwt/jwt/v5"

// Wallet permissions carried in platform-issued tokens
const (
	PermissionWalletRead  = "wallet:read"
	PermissionWalletWrite = "wallet:write"
)

// UserClaims are the claims the platform's identity service puts in
// access tokens. The wallet service only validates and reads them.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID      uint     `json:"user_id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

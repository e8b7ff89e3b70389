package auth

import (
	"errors"
	"time"
)

// Role is the access level carried in an account and its tokens.
type Role string

const (
	// RoleAdmin can do everything a user can.
	RoleAdmin Role = "admin"

	// RoleUser is assigned when registration names no role.
	RoleUser Role = "user"
)

// DefaultRole is the role given to accounts registered without one.
const DefaultRole = RoleUser

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleUser
}

// Account is a registered identity.
//
// PasswordHash and RecoverySecret never appear in JSON output.
type Account struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	RecoverySecret string    `json:"-"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// Sentinel errors for auth operations.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrUsernameExists       = errors.New("username already exists")
	ErrRecoverySecretExists = errors.New("recovery secret already in use")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidRecovery      = errors.New("username or recovery secret incorrect")
	ErrInvalidRole          = errors.New("invalid role")
	ErrMissingField         = errors.New("required field missing")
	ErrPasswordTooLong      = errors.New("password longer than 72 bytes")
	ErrTokenInvalid         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token has expired")
)

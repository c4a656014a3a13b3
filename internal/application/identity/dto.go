package identity

import (
	"time"

	"github.com/tallypro/storefront/internal/domain/identity"
)

// LoginInput contains the input for a password login
type LoginInput struct {
	Email    string
	Password string
	Path     identity.LoginPath
}

// SignupInput contains the input for account registration
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// SessionResult is returned by every successful login
type SessionResult struct {
	SessionID   string
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	User        *identity.User
}

// OTPRequestResult reports an issued login code. Code is set only when
// the service is configured to expose it.
type OTPRequestResult struct {
	Email     string
	ExpiresAt time.Time
	Code      string
}

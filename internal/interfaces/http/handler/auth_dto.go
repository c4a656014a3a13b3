package handler

import (
	"time"

	appidentity "github.com/tallypro/storefront/internal/application/identity"
	"github.com/tallypro/storefront/internal/domain/identity"
)

// LoginRequest is the body of both login endpoints
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest registers a customer account
type SignupRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

// OTPRequest asks for a login code
type OTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// OTPVerifyRequest redeems a login code
type OTPVerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// SessionResponse is returned by every login
type SessionResponse struct {
	SessionID   string         `json:"sessionId"`
	AccessToken string         `json:"accessToken"`
	TokenType   string         `json:"tokenType"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	User        *identity.User `json:"user"`
}

// OTPResponse reports an issued code. Code is present only outside production.
type OTPResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	Code      string    `json:"code,omitempty"`
}

func toSessionResponse(r *appidentity.SessionResult) SessionResponse {
	return SessionResponse{
		SessionID:   r.SessionID,
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
		ExpiresAt:   r.ExpiresAt,
		User:        r.User,
	}
}

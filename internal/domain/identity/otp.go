package identity

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
)

const (
	// OTPLength is the number of digits in a one-time login code
	OTPLength = 6
	// MaxOTPAttempts is how many wrong guesses burn a code
	MaxOTPAttempts = 5
)

// OTP is a one-time login code bound to an email address
type OTP struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`
	Attempts  int       `json:"attempts"`
}

// NewOTP generates a fresh numeric code valid for ttl
func NewOTP(email string, ttl time.Duration, now time.Time) (*OTP, error) {
	normalized := NormalizeEmail(email)
	if err := ValidateEmail(normalized); err != nil {
		return nil, err
	}
	code, err := randomString("0123456789", OTPLength)
	if err != nil {
		return nil, err
	}
	return &OTP{
		ID:        uuid.New().String(),
		Email:     normalized,
		Code:      code,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Redeem marks the code used if it matches and has not expired. A wrong
// guess counts against the code; after MaxOTPAttempts it is locked.
func (o *OTP) Redeem(code string, now time.Time) error {
	if o.Used {
		return ErrOTPUsed
	}
	if !now.Before(o.ExpiresAt) {
		return ErrOTPExpired
	}
	if o.Attempts >= MaxOTPAttempts {
		return ErrOTPLocked
	}
	if subtle.ConstantTimeCompare([]byte(o.Code), []byte(code)) != 1 {
		o.Attempts++
		return ErrOTPMismatch
	}
	o.Used = true
	return nil
}

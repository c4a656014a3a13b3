package local

import (
	"context"
	"errors"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/store"
)

// SaveOTP stores otp, replacing any earlier code for the same email
func (s *Store) SaveOTP(ctx context.Context, otp *identity.OTP) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	otps, err := load[identity.OTP](ctx, s, keyOTPs)
	if err != nil {
		return err
	}
	now := s.now()
	kept := make([]identity.OTP, 0, len(otps)+1)
	for _, o := range otps {
		if o.Email != otp.Email && now.Before(o.ExpiresAt) && !o.Used {
			kept = append(kept, o)
		}
	}
	kept = append(kept, *otp)
	return save(ctx, s, keyOTPs, kept)
}

// ConsumeOTP redeems the code for email and returns the account, which may
// be nil when the email has none
func (s *Store) ConsumeOTP(ctx context.Context, email, code string) (*identity.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	otps, err := load[identity.OTP](ctx, s, keyOTPs)
	if err != nil {
		return nil, err
	}
	email = identity.NormalizeEmail(email)
	idx := -1
	for i := range otps {
		if otps[i].Email == email {
			idx = i
		}
	}
	if idx < 0 {
		return nil, store.ErrOTPNotFound
	}
	redeemErr := otps[idx].Redeem(code, s.now())
	if redeemErr != nil && !errors.Is(redeemErr, identity.ErrOTPMismatch) {
		return nil, redeemErr
	}
	// a mismatch still persists the attempt count
	if err := save(ctx, s, keyOTPs, otps); err != nil {
		return nil, err
	}
	if redeemErr != nil {
		return nil, redeemErr
	}
	return s.userByEmail(ctx, email)
}

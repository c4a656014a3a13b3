package cloud

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/store"
)

// SaveOTP replaces any earlier code for the same email
func (s *Store) SaveOTP(ctx context.Context, otp *identity.OTP) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", otp.Email).Delete(&OTPModel{}).Error; err != nil {
			return err
		}
		return tx.Create(&OTPModel{
			ID:        otp.ID,
			Email:     otp.Email,
			Code:      otp.Code,
			ExpiresAt: otp.ExpiresAt,
			Used:      otp.Used,
			Attempts:  otp.Attempts,
		}).Error
	})
}

// ConsumeOTP redeems the latest code for email and returns the profile, which
// may be nil when the email has none
func (s *Store) ConsumeOTP(ctx context.Context, email, code string) (*identity.User, error) {
	email = identity.NormalizeEmail(email)
	var redeemErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row OTPModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ?", email).Order("expires_at DESC").First(&row).Error
		if err != nil {
			if isNotFound(err) {
				return store.ErrOTPNotFound
			}
			return err
		}
		otp := row.ToDomain()
		redeemErr = otp.Redeem(code, s.now())
		if errors.Is(redeemErr, identity.ErrOTPMismatch) {
			// committed so the wrong guess counts
			return tx.Model(&OTPModel{}).Where("id = ?", row.ID).Update("attempts", otp.Attempts).Error
		}
		if redeemErr != nil {
			return redeemErr
		}
		result := tx.Model(&OTPModel{}).Where("id = ? AND used = ?", row.ID, false).Update("used", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return identity.ErrOTPUsed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if redeemErr != nil {
		return nil, redeemErr
	}
	return s.GetUserByEmail(ctx, email)
}

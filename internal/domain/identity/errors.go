package identity

import "github.com/tallypro/storefront/internal/domain/shared"

var (
	ErrAdminRequired   = shared.NewDomainError("ADMIN_REQUIRED", "Administrator account required")
	ErrUseAdminLogin   = shared.NewDomainError("USE_ADMIN_LOGIN", "Administrators must sign in through the admin console")
	ErrAccountInactive = shared.NewDomainError("ACCOUNT_INACTIVE", "Account is inactive")
	ErrOTPExpired      = shared.NewDomainError("OTP_EXPIRED", "Verification code has expired")
	ErrOTPUsed         = shared.NewDomainError("OTP_USED", "Verification code has already been used")
	ErrOTPMismatch     = shared.NewDomainError("OTP_MISMATCH", "Invalid verification code")
	ErrOTPLocked       = shared.NewDomainError("OTP_LOCKED", "Too many incorrect codes, request a new one")
)

package identity

import (
	"crypto/rand"
	"math/big"

	"github.com/tallypro/storefront/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is the bcrypt cost used outside tests
const DefaultPasswordCost = 12

const guestAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ValidatePassword enforces the minimum password policy
func ValidatePassword(password string) error {
	if password == "" {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot be empty")
	}
	if len(password) < 6 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 6 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

// HashPassword validates and hashes a password with bcrypt
func HashPassword(password string, cost int) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	if cost == 0 {
		cost = DefaultPasswordCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", shared.WrapDomainError(err, "PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext candidate
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateGuestPassword returns eight random alphanumerics followed by "T@1"
func GenerateGuestPassword() (string, error) {
	s, err := randomString(guestAlphabet, 8)
	if err != nil {
		return "", err
	}
	return s + "T@1", nil
}

func randomString(alphabet string, n int) (string, error) {
	buf := make([]byte, n)
	limit := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}

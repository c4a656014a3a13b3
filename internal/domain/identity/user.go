package identity

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tallypro/storefront/internal/domain/shared"
)

// Role is the access level of a storefront account
type Role string

const (
	RoleCustomer     Role = "customer"
	RoleAdmin        Role = "admin"
	RoleSuperAdmin   Role = "super_admin"
	RoleSupportAdmin Role = "support_admin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleSuperAdmin, RoleSupportAdmin:
		return true
	}
	return false
}

// String returns the string representation
func (r Role) String() string {
	return string(r)
}

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// IsValid reports whether s is a known status
func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusInactive
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is a storefront account. Credentials are kept by the store, never here.
type User struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Role              Role       `json:"role"`
	Status            UserStatus `json:"status"`
	PurchasedProducts []string   `json:"purchasedProducts"`
	JoinedAt          time.Time  `json:"joinedAt"`
	PhoneNumber       string     `json:"phoneNumber,omitempty"`
	TallySerial       string     `json:"tallySerial,omitempty"`
}

// NewCustomer creates an active customer with an empty purchase set
func NewCustomer(id, name, email string) (*User, error) {
	return NewUser(id, name, email, RoleCustomer)
}

// NewUser creates an active user with the given role
func NewUser(id, name, email string, role Role) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role: "+string(role))
	}
	u := &User{
		ID:                id,
		Role:              role,
		Status:            UserStatusActive,
		PurchasedProducts: make([]string, 0),
		JoinedAt:          time.Now().UTC(),
	}
	if err := u.SetEmail(email); err != nil {
		return nil, err
	}
	if err := u.SetName(name); err != nil {
		return nil, err
	}
	return u, nil
}

// SetEmail validates and normalizes the email address
func (u *User) SetEmail(email string) error {
	normalized := NormalizeEmail(email)
	if err := ValidateEmail(normalized); err != nil {
		return err
	}
	u.Email = normalized
	return nil
}

// SetName sets the display name, falling back to the email's local part
func (u *User) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = LocalPart(u.Email)
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 100 characters")
	}
	u.Name = name
	return nil
}

// Grant adds productID to the purchase set. It returns false when already owned.
func (u *User) Grant(productID string) bool {
	if productID == "" || u.Owns(productID) {
		return false
	}
	u.PurchasedProducts = append(u.PurchasedProducts, productID)
	return true
}

// Owns reports whether productID is in the purchase set
func (u *User) Owns(productID string) bool {
	return slices.Contains(u.PurchasedProducts, productID)
}

// IsAdmin reports whether the user may use the admin console
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// IsActive returns true if the account is active
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// CanLogin checks if the user can log in
func (u *User) CanLogin() bool {
	return u.IsActive()
}

// Activate re-enables a deactivated account
func (u *User) Activate() {
	u.Status = UserStatusActive
}

// Deactivate disables the account. Users are never deleted.
func (u *User) Deactivate() {
	u.Status = UserStatusInactive
}

// Clone returns a deep copy so callers cannot mutate stored state
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PurchasedProducts = slices.Clone(u.PurchasedProducts)
	if c.PurchasedProducts == nil {
		c.PurchasedProducts = make([]string, 0)
	}
	return &c
}

// ProfileUpdate carries the self-service profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	Name        *string
	PhoneNumber *string
	TallySerial *string
}

// Apply writes the non-nil fields onto u
func (p ProfileUpdate) Apply(u *User) error {
	if p.Name != nil {
		if err := u.SetName(*p.Name); err != nil {
			return err
		}
	}
	if p.PhoneNumber != nil {
		phone := strings.TrimSpace(*p.PhoneNumber)
		if err := ValidatePhone(phone); err != nil {
			return err
		}
		u.PhoneNumber = phone
	}
	if p.TallySerial != nil {
		u.TallySerial = strings.TrimSpace(*p.TallySerial)
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email for case-insensitive comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LocalPart returns the part of an email before the @
func LocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// ValidateEmail checks email format
func ValidateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// ValidatePhone accepts an empty value or 10 to 15 digits with an optional +
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if !phoneRegex.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Invalid phone number")
	}
	return nil
}

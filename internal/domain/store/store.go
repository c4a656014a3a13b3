// Package store defines the persistence facade every storefront component
// depends on. Exactly one implementation is bound per process.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/support"
)

var (
	ErrEmailAlreadyRegistered = shared.NewDomainError("EMAIL_ALREADY_REGISTERED", "An account with this email already exists")
	ErrInvalidCredentials     = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrEntitlementPending     = shared.NewDomainError("ENTITLEMENT_PENDING", "Order recorded but entitlement not yet granted")
	ErrUploadFailed           = shared.NewDomainError("UPLOAD_FAILED", "File upload failed")
	ErrOTPNotFound            = shared.NewDomainError("OTP_NOT_FOUND", "No verification code was requested for this email")
)

// Unsubscribe tears down a subscription. It is safe to call more than once.
type Unsubscribe func()

// ProgressFunc receives upload progress as a percentage from 0 to 100
type ProgressFunc func(percent float64)

// ProductStore persists the module catalog
type ProductStore interface {
	GetProducts(ctx context.Context) ([]catalog.Product, error)
	// GetProduct returns nil, nil when the product does not exist
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	// SubscribeProducts invokes fn with the current catalog, and again on
	// every change where the backend supports live updates
	SubscribeProducts(ctx context.Context, fn func([]catalog.Product)) (Unsubscribe, error)
	AddProduct(ctx context.Context, p *catalog.Product) (*catalog.Product, error)
	UpdateProduct(ctx context.Context, p *catalog.Product) (*catalog.Product, error)
	// DeleteProduct is a soft delete
	DeleteProduct(ctx context.Context, id string) error
}

// NewUserInput is used by administrators to create accounts directly
type NewUserInput struct {
	Name        string
	Email       string
	Password    string
	Role        identity.Role
	PhoneNumber string
	TallySerial string
}

// UserStore persists accounts and authenticates them
type UserStore interface {
	GetUsers(ctx context.Context) ([]identity.User, error)
	// GetUserByEmail compares case-insensitively and returns nil, nil when absent
	GetUserByEmail(ctx context.Context, email string) (*identity.User, error)
	GetUserByID(ctx context.Context, id string) (*identity.User, error)
	// Login returns ErrInvalidCredentials on a bad email or password
	Login(ctx context.Context, email, password string) (*identity.User, error)
	Logout(ctx context.Context, userID string) error
	// Signup returns ErrEmailAlreadyRegistered when the email is taken
	Signup(ctx context.Context, name, email, password string) (*identity.User, error)
	UpdatePassword(ctx context.Context, userID, newPassword string) error
	UpdateUserProfile(ctx context.Context, userID string, update identity.ProfileUpdate) (*identity.User, error)
	AddUser(ctx context.Context, in NewUserInput) (*identity.User, error)
	UpdateUserStatus(ctx context.Context, userID string, status identity.UserStatus) error
	// GrantEntitlement adds productID to the user's set and reports whether it was missing
	GrantEntitlement(ctx context.Context, userID, productID string) (bool, error)
	SaveOTP(ctx context.Context, otp *identity.OTP) error
	// ConsumeOTP redeems the latest code for email and returns the matching user, if any
	ConsumeOTP(ctx context.Context, email, code string) (*identity.User, error)
}

// OrderStore persists the purchase ledger
type OrderStore interface {
	// CreateOrder records the order, then grants the entitlement. When the
	// second step fails the order is returned with an error wrapping
	// ErrEntitlementPending.
	CreateOrder(ctx context.Context, userID string, product *catalog.Product, details sales.PurchaseDetails) (*sales.Order, error)
	// CreateGuestOrder finds or creates the account for email and records the purchase
	CreateGuestOrder(ctx context.Context, email string, product *catalog.Product, details sales.PurchaseDetails) (*identity.User, error)
	GetOrders(ctx context.Context) ([]sales.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]sales.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status sales.OrderStatus) error
	GetRevenue(ctx context.Context) (decimal.Decimal, error)
}

// SupportStore persists tickets and feedback
type SupportStore interface {
	GetTickets(ctx context.Context) ([]support.Ticket, error)
	CreateTicket(ctx context.Context, t *support.Ticket) (*support.Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticketID string, status support.TicketStatus) error
	SubscribeTickets(ctx context.Context, fn func([]support.Ticket)) (Unsubscribe, error)
	GetFeedbacks(ctx context.Context) ([]support.Feedback, error)
	AddFeedback(ctx context.Context, f *support.Feedback) (*support.Feedback, error)
	SubscribeFeedbacks(ctx context.Context, fn func([]support.Feedback)) (Unsubscribe, error)
}

// FileStore stores module binaries and demo files
type FileStore interface {
	// UploadFile streams r and returns a URL the file can be fetched from
	UploadFile(ctx context.Context, name, contentType string, r io.Reader, size int64, progress ProgressFunc) (string, error)
}

// Store is the persistence facade
type Store interface {
	ProductStore
	UserStore
	OrderStore
	SupportStore
	FileStore
	io.Closer
	// Backend names the bound implementation for logs and health checks
	Backend() string
}

// GuestAccount is a guest purchaser together with a password generated for
// one-time display. Only demo backends produce one.
type GuestAccount struct {
	User     *identity.User
	Password string
}

// GuestCredentialIssuer is implemented by backends that own their own
// credentials and therefore generate a password for new guest accounts.
type GuestCredentialIssuer interface {
	CreateGuestOrderWithCredentials(ctx context.Context, email string, product *catalog.Product, details sales.PurchaseDetails) (*GuestAccount, error)
}

// IsEntitlementPending reports whether err is a recorded order whose
// entitlement still needs to be granted
func IsEntitlementPending(err error) bool {
	return errors.Is(err, ErrEntitlementPending)
}

// EntitlementPending wraps the cause of a failed entitlement write so that
// both errors.Is(err, ErrEntitlementPending) and errors.Is(err, cause) hold
func EntitlementPending(cause error) error {
	return fmt.Errorf("%w: %w", ErrEntitlementPending, cause)
}

package identity

import (
	"context"

	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
)

// ErrNotOwned is returned when a user asks for a module they have not bought
var ErrNotOwned = shared.NewDomainError("FORBIDDEN", "You have not purchased this module")

// Download is the location of a purchased module binary
type Download struct {
	ProductID string `json:"productId"`
	FileName  string `json:"fileName"`
	FileURL   string `json:"fileUrl"`
	Version   string `json:"version,omitempty"`
}

// AccountService serves the signed-in user's own account
type AccountService struct {
	store  store.Store
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(s store.Store, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{store: s, logger: logger}
}

// UpdateProfile applies a partial profile edit
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, update identity.ProfileUpdate) (*identity.User, error) {
	user, err := s.store.UpdateUserProfile(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Profile updated", zap.String("user_id", userID))
	return user, nil
}

// ChangePassword verifies the current password before setting a new one
func (s *AccountService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return shared.ErrNotFound
	}
	if _, err := s.store.Login(ctx, user.Email, currentPassword); err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, userID, newPassword); err != nil {
		return err
	}
	s.logger.Info("Password changed", zap.String("user_id", userID))
	return nil
}

// Orders returns the user's purchase history, newest first
func (s *AccountService) Orders(ctx context.Context, userID string) ([]sales.Order, error) {
	return s.store.GetOrdersByUser(ctx, userID)
}

// Download returns the module file of a product the user owns
func (s *AccountService) Download(ctx context.Context, userID, productID string) (*Download, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.ErrNotFound
	}
	if !user.Owns(productID) {
		return nil, ErrNotOwned
	}
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.FileURL == "" {
		return nil, shared.ErrNotFound
	}
	return &Download{
		ProductID: product.ID,
		FileName:  product.FileName,
		FileURL:   product.FileURL,
		Version:   product.Version,
	}, nil
}

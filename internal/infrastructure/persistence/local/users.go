package local

import (
	"context"
	"strings"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
)

func findUserByEmail(users []userRecord, email string) int {
	email = identity.NormalizeEmail(email)
	for i := range users {
		if identity.NormalizeEmail(users[i].Email) == email {
			return i
		}
	}
	return -1
}

func findUserByID(users []userRecord, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

func publicUser(r userRecord) *identity.User {
	return r.User.Clone()
}

// GetUsers returns all accounts without credentials
func (s *Store) GetUsers(ctx context.Context) ([]identity.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := load[userRecord](ctx, s, keyUsers)
	if err != nil {
		return nil, err
	}
	users := make([]identity.User, 0, len(records))
	for _, r := range records {
		users = append(users, *publicUser(r))
	}
	return users, nil
}

// GetUserByEmail matches case-insensitively
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userByEmail(ctx, email)
}

func (s *Store) userByEmail(ctx context.Context, email string) (*identity.User, error) {
	records, err := load[userRecord](ctx, s, keyUsers)
	if err != nil {
		return nil, err
	}
	if i := findUserByEmail(records, email); i >= 0 {
		return publicUser(records[i]), nil
	}
	return nil, nil
}

// GetUserByID returns nil, nil when id is unknown
func (s *Store) GetUserByID(ctx context.Context, id string) (*identity.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := load[userRecord](ctx, s, keyUsers)
	if err != nil {
		return nil, err
	}
	if i := findUserByID(records, id); i >= 0 {
		return publicUser(records[i]), nil
	}
	return nil, nil
}

// Login checks the password. Role and status rules belong to the caller.
func (s *Store) Login(ctx context.Context, email, password string) (*identity.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := load[userRecord](ctx, s, keyUsers)
	if err != nil {
		return nil, err
	}
	i := findUserByEmail(records, email)
	if i < 0 || !identity.CheckPassword(records[i].PasswordHash, password) {
		return nil, store.ErrInvalidCredentials
	}
	return publicUser(records[i]), nil
}

// Logout has no server-side state to clear locally
func (s *Store) Logout(ctx context.Context, userID string) error {
	return s.wait(ctx)
}

// Signup creates an active customer
func (s *Store) Signup(ctx context.Context, name, email, password string) (*identity.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if err := identity.ValidatePassword(password); err != nil {
		return nil, err
	}
	user, err := identity.NewCustomer(s.newID("usr"), name, email)
	if err != nil {
		return nil, err
	}
	user.JoinedAt = s.now()
	hash, err := identity.HashPassword(password, s.passwordCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := load[userRecord](ctx, s, keyUsers)
	if err != nil {
		return nil, err
	}
	if findUserByEmail(records, user.Email) >= 0 {
		return nil, store.ErrEmailAlreadyRegistered
	}
	records = append(records, userRecord{User: *user, PasswordHash: hash})
	if err := save(ctx, s, keyUsers, records); err != nil {
		return nil, err
	}
	return user.Clone(), nil
}

// UpdatePassword replaces the stored hash
func (s *Store) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := identity.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := identity.HashPassword(newPassword, s.passwordCost)
	if err != nil {
		return err
	}
	return s.mutateUser(ctx, userID, func(r *userRecord) error {
		r.PasswordHash = hash
		return nil
	})
}

// UpdateUserProfile applies the non-nil fields of update
func (s *Store) UpdateUserProfile(ctx context.Context, userID string, update identity.ProfileUpdate) (*identity.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	var out *identity.User
	err := s.mutateUser(ctx, userID, func(r *userRecord) error {
		if err := update.Apply(&r.User); err != nil {
			return err
		}
		out = r.User.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddUser creates an account directly. An empty role means customer.
func (s *Store) AddUser(ctx context.Context, in store.NewUserInput) (*identity.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = identity.RoleCustomer
	}
	user, err := identity.NewUser(s.newID("usr"), in.Name, in.Email, role)
	if err != nil {
		return nil, err
	}
	user.JoinedAt = s.now()
	if err := identity.ValidatePhone(strings.TrimSpace(in.PhoneNumber)); err != nil {
		return nil, err
	}
	user.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	user.TallySerial = strings.TrimSpace(in.TallySerial)

	password := in.Password
	if password == "" {
		if password, err = identity.GenerateGuestPassword(); err != nil {
			return nil, err
		}
	}
	if err := identity.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := identity.HashPassword(password, s.passwordCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := load[userRecord](ctx, s, keyUsers)
	if err != nil {
		return nil, err
	}
	if findUserByEmail(records, user.Email) >= 0 {
		return nil, store.ErrEmailAlreadyRegistered
	}
	records = append(records, userRecord{User: *user, PasswordHash: hash})
	if err := save(ctx, s, keyUsers, records); err != nil {
		return nil, err
	}
	return user.Clone(), nil
}

// UpdateUserStatus activates or deactivates an account
func (s *Store) UpdateUserStatus(ctx context.Context, userID string, status identity.UserStatus) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown user status: "+string(status))
	}
	return s.mutateUser(ctx, userID, func(r *userRecord) error {
		r.Status = status
		return nil
	})
}

// GrantEntitlement adds productID to the user's purchase set
func (s *Store) GrantEntitlement(ctx context.Context, userID, productID string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	var granted bool
	err := s.mutateUser(ctx, userID, func(r *userRecord) error {
		granted = r.Grant(productID)
		return nil
	})
	return granted, err
}

// mutateUser runs fn on the stored record and persists the result
func (s *Store) mutateUser(ctx context.Context, userID string, fn func(r *userRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := load[userRecord](ctx, s, keyUsers)
	if err != nil {
		return err
	}
	i := findUserByID(records, userID)
	if i < 0 {
		return shared.ErrNotFound
	}
	if err := fn(&records[i]); err != nil {
		return err
	}
	return save(ctx, s, keyUsers, records)
}

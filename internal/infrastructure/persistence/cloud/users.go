package cloud

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
)

// GetUsers returns every profile in join order
func (s *Store) GetUsers(ctx context.Context) ([]identity.User, error) {
	var rows []ProfileModel
	if err := s.db.WithContext(ctx).Order("joined_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]identity.User, 0, len(rows))
	for i := range rows {
		users = append(users, *rows[i].ToDomain())
	}
	return users, nil
}

// GetUserByEmail matches the normalized email and returns nil, nil when absent
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	row, err := profileByEmail(s.db.WithContext(ctx), email)
	if err != nil || row == nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// GetUserByID returns nil, nil when id is unknown
func (s *Store) GetUserByID(ctx context.Context, id string) (*identity.User, error) {
	row, err := profileByID(s.db.WithContext(ctx), id)
	if err != nil || row == nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

func profileByEmail(db *gorm.DB, email string) (*ProfileModel, error) {
	var row ProfileModel
	if err := db.Where("email = ?", identity.NormalizeEmail(email)).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func profileByID(db *gorm.DB, id string) (*ProfileModel, error) {
	var row ProfileModel
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func credentialByEmail(db *gorm.DB, email string) (*CredentialModel, error) {
	var row CredentialModel
	if err := db.Where("email = ?", identity.NormalizeEmail(email)).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Login checks the password, then applies the admin allow-list. A profile
// missing for an authenticated account is recreated.
func (s *Store) Login(ctx context.Context, email, password string) (*identity.User, error) {
	db := s.db.WithContext(ctx)
	cred, err := credentialByEmail(db, email)
	if err != nil {
		return nil, err
	}
	if cred == nil || !identity.CheckPassword(cred.PasswordHash, password) {
		return nil, store.ErrInvalidCredentials
	}

	profile, err := profileByID(db, cred.UserID)
	if err != nil {
		return nil, err
	}

	if profile == nil {
		role := identity.ResolveRole(cred.Email, s.adminAllowList, identity.RoleCustomer)
		user, err := identity.NewUser(cred.UserID, identity.LocalPart(cred.Email), cred.Email, role)
		if err != nil {
			return nil, err
		}
		user.JoinedAt = s.now()
		model := ProfileModelFromDomain(user)
		model.UpdatedAt = user.JoinedAt
		if err := db.Create(model).Error; err != nil {
			return nil, err
		}
		s.logger.Info("Recreated missing profile at login",
			zap.String("user_id", user.ID),
			zap.String("role", string(role)),
		)
		return user, nil
	}

	user := profile.ToDomain()
	if role := identity.ResolveRole(user.Email, s.adminAllowList, user.Role); role != user.Role {
		if err := db.Model(&ProfileModel{}).Where("id = ?", user.ID).
			Updates(map[string]any{"role": string(role), "updated_at": s.now()}).Error; err != nil {
			return nil, err
		}
		s.logger.Info("Promoted allow-listed account",
			zap.String("user_id", user.ID),
			zap.String("from", string(user.Role)),
			zap.String("to", string(role)),
		)
		user.Role = role
	}

	if cred.SignedOutAt != nil {
		if err := db.Model(&CredentialModel{}).Where("user_id = ?", cred.UserID).
			Update("signed_out_at", nil).Error; err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Logout stamps the credential
func (s *Store) Logout(ctx context.Context, userID string) error {
	now := s.now()
	return s.db.WithContext(ctx).Model(&CredentialModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"signed_out_at": now, "updated_at": now}).Error
}

// Signup creates the credential, then the profile, under one id. An email
// that only has a guest profile claims that profile.
func (s *Store) Signup(ctx context.Context, name, email, password string) (*identity.User, error) {
	if err := identity.ValidatePassword(password); err != nil {
		return nil, err
	}
	user, err := identity.NewCustomer(newID(), name, email)
	if err != nil {
		return nil, err
	}
	user.JoinedAt = s.now()
	hash, err := identity.HashPassword(password, s.passwordCost)
	if err != nil {
		return nil, err
	}

	var out *identity.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cred, err := credentialByEmail(tx, user.Email)
		if err != nil {
			return err
		}
		if cred != nil {
			return store.ErrEmailAlreadyRegistered
		}

		existing, err := profileByEmail(tx, user.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			user = existing.ToDomain()
		}

		if err := tx.Create(&CredentialModel{
			UserID:       user.ID,
			Email:        user.Email,
			PasswordHash: hash,
			CreatedAt:    s.now(),
			UpdatedAt:    s.now(),
		}).Error; err != nil {
			if isUniqueViolation(err) {
				return store.ErrEmailAlreadyRegistered
			}
			return err
		}
		if existing == nil {
			model := ProfileModelFromDomain(user)
			model.UpdatedAt = user.JoinedAt
			if err := tx.Create(model).Error; err != nil {
				return err
			}
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePassword replaces the hash, creating the credential for guest profiles
func (s *Store) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if err := identity.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := identity.HashPassword(newPassword, s.passwordCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := profileByID(tx, userID)
		if err != nil {
			return err
		}
		if profile == nil {
			return shared.ErrNotFound
		}
		result := tx.Model(&CredentialModel{}).Where("user_id = ?", userID).
			Updates(map[string]any{"password_hash": hash, "updated_at": s.now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&CredentialModel{
			UserID:       userID,
			Email:        profile.Email,
			PasswordHash: hash,
			CreatedAt:    s.now(),
			UpdatedAt:    s.now(),
		}).Error
	})
}

// UpdateUserProfile applies the non-nil fields of update
func (s *Store) UpdateUserProfile(ctx context.Context, userID string, update identity.ProfileUpdate) (*identity.User, error) {
	var out *identity.User
	err := s.mutateProfile(ctx, userID, func(u *identity.User) error {
		if err := update.Apply(u); err != nil {
			return err
		}
		out = u.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddUser creates a profile and its credential. An empty password is generated.
func (s *Store) AddUser(ctx context.Context, in store.NewUserInput) (*identity.User, error) {
	role := in.Role
	if role == "" {
		role = identity.RoleCustomer
	}
	user, err := identity.NewUser(newID(), in.Name, in.Email, role)
	if err != nil {
		return nil, err
	}
	user.JoinedAt = s.now()
	phone := strings.TrimSpace(in.PhoneNumber)
	if err := identity.ValidatePhone(phone); err != nil {
		return nil, err
	}
	user.PhoneNumber = phone
	user.TallySerial = strings.TrimSpace(in.TallySerial)

	password := in.Password
	if password == "" {
		if password, err = identity.GenerateGuestPassword(); err != nil {
			return nil, err
		}
	}
	hash, err := identity.HashPassword(password, s.passwordCost)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := profileByEmail(tx, user.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return store.ErrEmailAlreadyRegistered
		}
		model := ProfileModelFromDomain(user)
		model.UpdatedAt = user.JoinedAt
		if err := tx.Create(model).Error; err != nil {
			if isUniqueViolation(err) {
				return store.ErrEmailAlreadyRegistered
			}
			return err
		}
		return tx.Create(&CredentialModel{
			UserID:       user.ID,
			Email:        user.Email,
			PasswordHash: hash,
			CreatedAt:    user.JoinedAt,
			UpdatedAt:    user.JoinedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUserStatus activates or deactivates an account
func (s *Store) UpdateUserStatus(ctx context.Context, userID string, status identity.UserStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown user status: "+string(status))
	}
	result := s.db.WithContext(ctx).Model(&ProfileModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{"status": string(status), "updated_at": s.now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GrantEntitlement adds productID to the user's purchase set
func (s *Store) GrantEntitlement(ctx context.Context, userID, productID string) (bool, error) {
	var granted bool
	err := s.mutateProfile(ctx, userID, func(u *identity.User) error {
		granted = u.Grant(productID)
		return nil
	})
	return granted, err
}

// mutateProfile reads the profile, applies fn and writes the mutable columns back
func (s *Store) mutateProfile(ctx context.Context, userID string, fn func(u *identity.User) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return mutateProfileTx(tx, userID, s.now(), fn)
	})
}

// mutateProfileTx holds the profile row lock until tx ends so concurrent
// grants cannot overwrite each other's purchase set.
func mutateProfileTx(tx *gorm.DB, userID string, now time.Time, fn func(u *identity.User) error) error {
	row, err := profileByID(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
	if err != nil {
		return err
	}
	if row == nil {
		return shared.ErrNotFound
	}
	user := row.ToDomain()
	if err := fn(user); err != nil {
		return err
	}
	model := ProfileModelFromDomain(user)
	return tx.Model(&ProfileModel{}).Where("id = ?", userID).Updates(map[string]any{
		"name":               model.Name,
		"phone_number":       model.PhoneNumber,
		"tally_serial":       model.TallySerial,
		"purchased_products": model.PurchasedProducts,
		"updated_at":         now,
	}).Error
}

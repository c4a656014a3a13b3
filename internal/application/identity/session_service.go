// Package identity holds the session and account use cases.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/infrastructure/auth"
	"github.com/tallypro/storefront/internal/infrastructure/kv"
)

// SessionKeyPrefix namespaces mirrored session users in the KV
const SessionKeyPrefix = "anduriltech_session:"

var ErrSessionNotFound = shared.NewDomainError("SESSION_NOT_FOUND", "Session has expired. Please sign in again")

// SessionServiceConfig contains configuration for the session service
type SessionServiceConfig struct {
	OTPTTL    time.Duration
	ExposeOTP bool
}

// SessionService signs users in and out and keeps a copy of the signed-in
// user for each session
type SessionService struct {
	store     store.Store
	sessions  kv.Store
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	config    SessionServiceConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(
	s store.Store,
	sessions kv.Store,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	config SessionServiceConfig,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.OTPTTL <= 0 {
		config.OTPTTL = 10 * time.Minute
	}
	return &SessionService{
		store:     s,
		sessions:  sessions,
		jwt:       jwtService,
		blacklist: blacklist,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Login authenticates with email and password on the given path
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*SessionResult, error) {
	if input.Path == "" {
		input.Path = identity.LoginPathCustomer
	}
	s.logger.Info("Login attempt",
		zap.String("email", identity.NormalizeEmail(input.Email)),
		zap.String("path", string(input.Path)),
	)

	user, err := s.store.Login(ctx, input.Email, input.Password)
	if err != nil {
		s.logger.Warn("Login failed", zap.String("path", string(input.Path)), zap.Error(err))
		return nil, err
	}
	if err := s.admit(ctx, user, input.Path); err != nil {
		return nil, err
	}
	return s.start(ctx, user)
}

// Signup registers a customer and signs them in
func (s *SessionService) Signup(ctx context.Context, input SignupInput) (*SessionResult, error) {
	if err := identity.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	user, err := s.store.Signup(ctx, input.Name, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Account registered", zap.String("user_id", user.ID))
	return s.start(ctx, user)
}

// Logout revokes token, drops the session mirror and signs the user out
// of the store. An already expired token is not an error.
func (s *SessionService) Logout(ctx context.Context, sessionID, token string) error {
	var userID string
	if claims, err := s.jwt.Validate(token); err == nil {
		userID = claims.UserID
		sessionID = claims.SessionID
		if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.RemainingTTL()); err != nil {
			return err
		}
	} else if !errors.Is(err, auth.ErrExpiredToken) {
		s.logger.Debug("Logout with unusable token", zap.Error(err))
	}

	if userID == "" && sessionID != "" {
		if user, err := s.Current(ctx, sessionID); err == nil {
			userID = user.ID
		}
	}
	if sessionID != "" {
		if err := s.sessions.Delete(ctx, SessionKeyPrefix+sessionID); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	if userID == "" {
		return nil
	}

	s.logger.Info("User logged out", zap.String("user_id", userID))
	return s.store.Logout(ctx, userID)
}

// Current returns the user mirrored for sessionID
func (s *SessionService) Current(ctx context.Context, sessionID string) (*identity.User, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	raw, err := s.sessions.Get(ctx, SessionKeyPrefix+sessionID)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var user identity.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", sessionID, err)
	}
	return &user, nil
}

// Refresh re-reads the session user from the store and updates the mirror.
// A user that was deleted or deactivated ends the session.
func (s *SessionService) Refresh(ctx context.Context, sessionID string) (*identity.User, error) {
	mirrored, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, mirrored.ID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.CanLogin() {
		_ = s.sessions.Delete(ctx, SessionKeyPrefix+sessionID)
		return nil, ErrSessionNotFound
	}
	if err := s.mirror(ctx, sessionID, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RequestOTP issues a login code for email. Delivery is outside this
// service; the code is logged at debug level and returned only when exposed.
func (s *SessionService) RequestOTP(ctx context.Context, email string) (*OTPRequestResult, error) {
	otp, err := identity.NewOTP(email, s.config.OTPTTL, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveOTP(ctx, otp); err != nil {
		return nil, err
	}
	s.logger.Info("Login code issued", zap.String("email", otp.Email), zap.Time("expires_at", otp.ExpiresAt))
	s.logger.Debug("Login code for delivery", zap.String("email", otp.Email), zap.String("code", otp.Code))

	result := &OTPRequestResult{Email: otp.Email, ExpiresAt: otp.ExpiresAt}
	if s.config.ExposeOTP {
		result.Code = otp.Code
	}
	return result, nil
}

// LoginWithOTP redeems a login code under the customer rules
func (s *SessionService) LoginWithOTP(ctx context.Context, email, code string) (*SessionResult, error) {
	user, err := s.store.ConsumeOTP(ctx, email, code)
	if err != nil {
		s.logger.Warn("Login code rejected", zap.String("email", identity.NormalizeEmail(email)), zap.Error(err))
		return nil, err
	}
	if user == nil {
		return nil, store.ErrInvalidCredentials
	}
	if err := s.admit(ctx, user, identity.LoginPathCustomer); err != nil {
		return nil, err
	}
	return s.start(ctx, user)
}

// ValidateToken checks the signature and both revocation lists
func (s *SessionService) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, auth.ErrTokenRevoked
	}
	invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.IssuedAtTime())
	if err != nil {
		return nil, err
	}
	if invalidated {
		return nil, auth.ErrTokenRevoked
	}
	return claims, nil
}

func (s *SessionService) admit(ctx context.Context, user *identity.User, path identity.LoginPath) error {
	if err := identity.CheckLoginPath(user, path); err != nil {
		s.logger.Warn("Login rejected",
			zap.String("user_id", user.ID),
			zap.String("role", string(user.Role)),
			zap.String("path", string(path)),
			zap.Error(err),
		)
		if logoutErr := s.store.Logout(ctx, user.ID); logoutErr != nil {
			s.logger.Error("Failed to sign out rejected user", zap.Error(logoutErr))
		}
		return err
	}
	return nil
}

func (s *SessionService) start(ctx context.Context, user *identity.User) (*SessionResult, error) {
	sessionID := uuid.New().String()
	token, err := s.jwt.Issue(auth.TokenInput{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}
	if err := s.mirror(ctx, sessionID, user); err != nil {
		return nil, err
	}

	s.logger.Info("Session started",
		zap.String("user_id", user.ID),
		zap.String("session_id", sessionID),
	)
	return &SessionResult{
		SessionID:   sessionID,
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
		User:        user,
	}, nil
}

func (s *SessionService) mirror(ctx context.Context, sessionID string, user *identity.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.sessions.Set(ctx, SessionKeyPrefix+sessionID, raw, s.jwt.Expiration()); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/policy"
	"github.com/rudzz/marketplace/internal/domain/providers"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
	"github.com/rudzz/marketplace/pkg/jwtutil"
)

const invalidCredentialsMessage = "invalid credentials"

// unknownAccountPassword is hashed once to give lookups that miss a digest to
// verify against, so both failure paths pay the same hashing cost.
const unknownAccountPassword = "unknown-account-placeholder"

// RegisterInput carries the fields accepted at sign-up
type RegisterInput struct {
	Email     string
	Phone     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// LoginInput identifies the account by email or phone
type LoginInput struct {
	Email    string
	Phone    string
	Password string
}

// AuthResult is returned by register and login
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         *entities.User
}

// AuthService handles registration, authentication and token exchange
type AuthService struct {
	users   repositories.UserRepository
	hasher  providers.PasswordHasher
	tokens  providers.TokenIssuer
	metrics *observability.DomainMetrics
	now     func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

// NewAuthService creates a new auth service
func NewAuthService(users repositories.UserRepository, hasher providers.PasswordHasher, tokens providers.TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
}

// SetMetrics sets the domain counters
func (s *AuthService) SetMetrics(metrics *observability.DomainMetrics) {
	s.metrics = metrics
}

// Register validates and stores a new account and signs it in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, err := s.buildUser(ctx, in)
	if err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}
	user.PasswordHash = digest

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Int64("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("user registered")

	return s.issue(user)
}

// Login verifies credentials. Every failure mode yields the same
// unauthorized error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if strings.TrimSpace(in.Email) == "" && strings.TrimSpace(in.Phone) == "" {
		return nil, apperrors.NewValidationError("email or phone is required")
	}

	user, err := s.lookup(ctx, in)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			s.hasher.Verify(in.Password, s.unknownAccountDigest(ctx))
			s.metrics.AuthFailed(ctx, "invalid_credentials")
			return nil, apperrors.NewUnauthorizedError(invalidCredentialsMessage)
		}
		return nil, err
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) || !user.IsActive {
		s.metrics.AuthFailed(ctx, "invalid_credentials")
		return nil, apperrors.NewUnauthorizedError(invalidCredentialsMessage)
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Int64("user_id", user.ID).Msg("failed to record last login")
	} else {
		user.LastLogin = &now
	}

	return s.issue(user)
}

// Refresh exchanges a refresh token for a new access token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, jwtutil.TokenTypeRefresh)
	if err != nil {
		s.metrics.AuthFailed(ctx, "invalid_refresh_token")
		return "", apperrors.NewUnauthorizedError("invalid or expired refresh token")
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return "", err
	}

	token, err := s.tokens.GenerateToken(user.ID, string(user.Role), jwtutil.TokenTypeAccess)
	if err != nil {
		return "", apperrors.NewInternalError("failed to sign access token", err)
	}
	return token, nil
}

// ResolveAccessToken turns a bearer access token into the acting identity.
// The role comes from the stored account, not from the token.
func (s *AuthService) ResolveAccessToken(ctx context.Context, accessToken string) (*policy.Actor, error) {
	claims, err := s.tokens.ValidateToken(accessToken, jwtutil.TokenTypeAccess)
	if err != nil {
		s.metrics.AuthFailed(ctx, "invalid_access_token")
		if errors.Is(err, jwtutil.ErrWrongTokenType) {
			return nil, apperrors.NewUnauthorizedError("access token required")
		}
		return nil, apperrors.NewUnauthorizedError("invalid or expired token")
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return &policy.Actor{UserID: user.ID, Role: user.Role}, nil
}

// Me returns the acting identity's account
func (s *AuthService) Me(ctx context.Context, actor policy.Actor) (*entities.User, error) {
	return s.users.GetByID(ctx, actor.UserID)
}

func (s *AuthService) buildUser(ctx context.Context, in RegisterInput) (*entities.User, error) {
	if strings.TrimSpace(in.Email) == "" && strings.TrimSpace(in.Phone) == "" {
		return nil, apperrors.NewValidationError("email or phone is required")
	}
	if err := entities.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	role := entities.RoleCustomer
	if strings.TrimSpace(in.Role) != "" {
		parsed, ok := entities.ParseRole(in.Role)
		if !ok || parsed == entities.RoleAdmin {
			return nil, apperrors.NewValidationError("role must be customer or provider")
		}
		role = parsed
	}

	user := &entities.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role,
		IsActive:  true,
	}

	if strings.TrimSpace(in.Email) != "" {
		email, err := entities.NormalizeEmail(in.Email)
		if err != nil {
			return nil, err
		}
		if err := s.ensureFree(ctx, s.users.GetByEmail, email, "email already registered"); err != nil {
			return nil, err
		}
		user.Email = &email
	}
	if strings.TrimSpace(in.Phone) != "" {
		phone, err := entities.NormalizePhone(in.Phone)
		if err != nil {
			return nil, err
		}
		if err := s.ensureFree(ctx, s.users.GetByPhone, phone, "phone already registered"); err != nil {
			return nil, err
		}
		user.Phone = &phone
	}
	return user, nil
}

func (s *AuthService) ensureFree(ctx context.Context, find func(context.Context, string) (*entities.User, error), value, message string) error {
	_, err := find(ctx, value)
	switch {
	case err == nil:
		return apperrors.NewConflictError(message)
	case apperrors.IsType(err, apperrors.ErrorTypeNotFound):
		return nil
	default:
		return err
	}
}

func (s *AuthService) unknownAccountDigest(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(unknownAccountPassword)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to hash placeholder credential")
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func (s *AuthService) lookup(ctx context.Context, in LoginInput) (*entities.User, error) {
	if strings.TrimSpace(in.Email) != "" {
		email, err := entities.NormalizeEmail(in.Email)
		if err != nil {
			return nil, apperrors.NewNotFoundError("user not found")
		}
		return s.users.GetByEmail(ctx, email)
	}
	phone, err := entities.NormalizePhone(in.Phone)
	if err != nil {
		return nil, apperrors.NewNotFoundError("user not found")
	}
	return s.users.GetByPhone(ctx, phone)
}

func (s *AuthService) activeUser(ctx context.Context, id int64) (*entities.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewUnauthorizedError("account no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorizedError("account is disabled")
	}
	return user, nil
}

func (s *AuthService) issue(user *entities.User) (*AuthResult, error) {
	pair, err := s.tokens.GenerateTokenPair(user.ID, string(user.Role))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to sign tokens", err)
	}
	return &AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	}, nil
}

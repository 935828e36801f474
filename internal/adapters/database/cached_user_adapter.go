package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/providers"
	"github.com/rudzz/marketplace/internal/domain/repositories"
)

// userByIDTTL bounds how long a cached account may be served (seconds)
const userByIDTTL = 60

// CachedUserAdapter wraps a UserRepository with a read-through cache on
// GetByID, the lookup behind every authenticated request. Writes go to the
// wrapped repository first and then drop the cached entry.
type CachedUserAdapter struct {
	adapter repositories.UserRepository
	cache   providers.CacheProvider
}

var _ repositories.UserRepository = (*CachedUserAdapter)(nil)

// NewCachedUserAdapter creates a new cached user adapter
func NewCachedUserAdapter(adapter repositories.UserRepository, cache providers.CacheProvider) repositories.UserRepository {
	return &CachedUserAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

func userCacheKey(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

// cachedUser mirrors entities.User including the credential hash, which the
// entity keeps out of its JSON form.
type cachedUser struct {
	ID           int64         `json:"id"`
	Email        *string       `json:"email"`
	Phone        *string       `json:"phone"`
	PasswordHash string        `json:"password_hash"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Role         entities.Role `json:"role"`
	IsActive     bool          `json:"is_active"`
	LastLogin    *time.Time    `json:"last_login"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func toCachedUser(u *entities.User) cachedUser {
	return cachedUser{
		ID:           u.ID,
		Email:        u.Email,
		Phone:        u.Phone,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		IsActive:     u.IsActive,
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (c cachedUser) user() *entities.User {
	return &entities.User{
		ID:           c.ID,
		Email:        c.Email,
		Phone:        c.Phone,
		PasswordHash: c.PasswordHash,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Role:         c.Role,
		IsActive:     c.IsActive,
		LastLogin:    c.LastLogin,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// GetByID retrieves a user by ID with caching
func (a *CachedUserAdapter) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	key := userCacheKey(id)

	if cached, err := a.cache.Get(ctx, key); err == nil {
		var entry cachedUser
		if err := json.Unmarshal(cached, &entry); err == nil {
			return entry.user(), nil
		}
		log.Ctx(ctx).Warn().Err(err).Int64("user_id", id).Msg("Failed to decode cached user")
	}

	user, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(toCachedUser(user)); err == nil {
		if err := a.cache.Set(ctx, key, data, userByIDTTL); err != nil {
			log.Ctx(ctx).Warn().Err(err).Int64("user_id", id).Msg("Failed to cache user")
		}
	}
	return user, nil
}

func (a *CachedUserAdapter) Create(ctx context.Context, user *entities.User) error {
	return a.adapter.Create(ctx, user)
}

func (a *CachedUserAdapter) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return a.adapter.GetByEmail(ctx, email)
}

func (a *CachedUserAdapter) GetByPhone(ctx context.Context, phone string) (*entities.User, error) {
	return a.adapter.GetByPhone(ctx, phone)
}

func (a *CachedUserAdapter) List(ctx context.Context, limit, offset int) ([]*entities.User, error) {
	return a.adapter.List(ctx, limit, offset)
}

// Update updates a user and invalidates its cache entry
func (a *CachedUserAdapter) Update(ctx context.Context, user *entities.User) error {
	if err := a.adapter.Update(ctx, user); err != nil {
		return err
	}
	a.invalidate(ctx, user.ID)
	return nil
}

func (a *CachedUserAdapter) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	if err := a.adapter.UpdateLastLogin(ctx, id, at); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

// Delete deletes a user and invalidates its cache entry
func (a *CachedUserAdapter) Delete(ctx context.Context, id int64) error {
	if err := a.adapter.Delete(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

// invalidate runs inline so a deleted or deactivated account stops
// resolving on the very next request.
func (a *CachedUserAdapter) invalidate(ctx context.Context, id int64) {
	if err := a.cache.Delete(ctx, userCacheKey(id)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("user_id", id).Msg("Failed to invalidate user cache")
	}
}

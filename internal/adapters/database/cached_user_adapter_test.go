package database_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudzz/marketplace/internal/adapters/database"
	"github.com/rudzz/marketplace/internal/adapters/memory"
	"github.com/rudzz/marketplace/internal/domain/entities"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

var errCacheMiss = errors.New("cache miss")

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *mapCache) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("not supported")
}

func (c *mapCache) Ping(ctx context.Context) error { return nil }

func (c *mapCache) has(key string) bool {
	ok, _ := c.Exists(context.Background(), key)
	return ok
}

func TestCachedUserAdapter_ReadThroughKeepsHash(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore().Users()
	cache := newMapCache()
	repo := database.NewCachedUserAdapter(inner, cache)

	email := "ada@example.com"
	user := &entities.User{Email: &email, PasswordHash: "hash", FirstName: "Ada", Role: entities.RoleCustomer, IsActive: true}
	require.NoError(t, repo.Create(ctx, user))
	assert.False(t, cache.has("user:1"))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
	assert.True(t, cache.has("user:1"))

	cached, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", cached.PasswordHash)
	assert.Equal(t, "ada@example.com", *cached.Email)
	assert.Equal(t, entities.RoleCustomer, cached.Role)
}

func TestCachedUserAdapter_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore().Users()
	cache := newMapCache()
	repo := database.NewCachedUserAdapter(inner, cache)

	email := "bo@example.com"
	user := &entities.User{Email: &email, PasswordHash: "hash", FirstName: "Bo", Role: entities.RoleProvider, IsActive: true}
	require.NoError(t, repo.Create(ctx, user))

	_, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)

	user.FirstName = "Bola"
	require.NoError(t, repo.Update(ctx, user))
	assert.False(t, cache.has("user:1"))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bola", got.FirstName)

	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, time.Now()))
	assert.False(t, cache.has("user:1"))

	_, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, user.ID))
	assert.False(t, cache.has("user:1"))

	_, err = repo.GetByID(ctx, user.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestCachedUserAdapter_IgnoresCorruptEntry(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore().Users()
	cache := newMapCache()
	repo := database.NewCachedUserAdapter(inner, cache)

	email := "cy@example.com"
	user := &entities.User{Email: &email, PasswordHash: "hash", FirstName: "Cy", Role: entities.RoleCustomer, IsActive: true}
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, cache.Set(ctx, "user:1", []byte("{not json"), 60))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cy", got.FirstName)
}

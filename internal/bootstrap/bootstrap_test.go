package bootstrap_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudzz/marketplace/internal/adapters/events"
	"github.com/rudzz/marketplace/internal/application/services"
	"github.com/rudzz/marketplace/internal/bootstrap"
	"github.com/rudzz/marketplace/internal/domain/providers"
	"github.com/rudzz/marketplace/pkg/config"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:       "bootstrap-secret",
		Issuer:          "marketplace-test",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
}

func TestOpenStore_Memory(t *testing.T) {
	store, err := bootstrap.OpenStore(&config.Config{Storage: config.StorageConfig{Driver: config.StorageDriverMemory}})
	require.NoError(t, err)
	defer store.Close()

	assert.Nil(t, store.DB)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := bootstrap.OpenStore(&config.Config{Storage: config.StorageConfig{Driver: "sqlite"}})
	assert.ErrorContains(t, err, `unsupported storage driver "sqlite"`)
}

func TestOptionalClientsDisabled(t *testing.T) {
	cfg := &config.Config{}

	redis, err := bootstrap.OpenRedis(cfg)
	assert.NoError(t, err)
	assert.Nil(t, redis)

	index, client, err := bootstrap.OpenListingIndex(context.Background(), cfg)
	assert.NoError(t, err)
	assert.Nil(t, index)
	assert.Nil(t, client)
}

func TestNewServices_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := bootstrap.NewMemoryStore()
	bus := events.NewLocalEventBus()
	defer bus.Close()

	svc := bootstrap.NewServices(store, bootstrap.NewTokenIssuer(testAuthConfig()), bootstrap.Options{
		EventBus:   bus,
		BcryptCost: 4,
	})

	provider, err := svc.Auth.Register(ctx, services.RegisterInput{
		Email: "pro@example.com", Password: "long-password", Role: "provider",
	})
	require.NoError(t, err)
	customer, err := svc.Auth.Register(ctx, services.RegisterInput{
		Email: "cust@example.com", Password: "long-password",
	})
	require.NoError(t, err)

	actor, err := svc.Auth.ResolveAccessToken(ctx, provider.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, provider.User.ID, actor.UserID)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	inbox, err := bus.Subscribe(subCtx, providers.UserChannel(provider.User.ID))
	require.NoError(t, err)

	customerActor, err := svc.Auth.ResolveAccessToken(ctx, customer.AccessToken)
	require.NoError(t, err)
	_, err = svc.Messages.Send(ctx, *customerActor, provider.User.ID, "hello")
	require.NoError(t, err)

	select {
	case event := <-inbox:
		assert.Equal(t, "new_message", event.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("message event was not published")
	}

	// no index configured
	_, err = svc.Directory.Reindex(ctx)
	assert.Error(t, err)
}

package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rudzz/marketplace/internal/adapters/memory"
	"github.com/rudzz/marketplace/internal/application/services"
	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/policy"
	"github.com/rudzz/marketplace/pkg/jwtutil"
)

// plainHasher is a reversible stand-in for bcrypt that keeps tests fast
type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }

func (plainHasher) Verify(plaintext, digest string) bool { return digest == "hashed:"+plaintext }

// MockEventBus records published events
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, event *entities.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.Event, error) {
	args := m.Called(ctx, channel)
	ch, _ := args.Get(0).(<-chan *entities.Event)
	return ch, args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

// MockListingIndex stands in for the search index
type MockListingIndex struct {
	mock.Mock
}

func (m *MockListingIndex) Upsert(ctx context.Context, provider *entities.Provider) error {
	return m.Called(ctx, provider).Error(0)
}

func (m *MockListingIndex) Remove(ctx context.Context, providerID int64) error {
	return m.Called(ctx, providerID).Error(0)
}

func (m *MockListingIndex) Search(ctx context.Context, filter entities.ProviderFilter) ([]int64, error) {
	args := m.Called(ctx, filter)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

type fixture struct {
	store     *memory.Store
	tokens    *jwtutil.JWTUtil
	auth      *services.AuthService
	users     *services.UserService
	directory *services.DirectoryService
	reviews   *services.ReviewService
	messages  *services.MessageService
	blog      *services.BlogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	tokens := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      "test-key",
		Issuer:          "marketplace",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	return &fixture{
		store:     store,
		tokens:    tokens,
		auth:      services.NewAuthService(store.Users(), plainHasher{}, tokens),
		users:     services.NewUserService(store.Users(), store.Providers()),
		directory: services.NewDirectoryService(store.Providers()),
		reviews:   services.NewReviewService(store.Reviews(), store.Providers()),
		messages:  services.NewMessageService(store.Messages(), store.Users()),
		blog:      services.NewBlogService(store.Blog()),
	}
}

// register creates an account and returns its acting identity
func (f *fixture) register(t *testing.T, email string, role entities.Role) policy.Actor {
	t.Helper()
	res, err := f.auth.Register(context.Background(), services.RegisterInput{
		Email:    email,
		Password: "password123",
		Role:     string(role),
	})
	require.NoError(t, err)
	return policy.Actor{UserID: res.User.ID, Role: res.User.Role}
}

// listing creates a provider account with a listing at the given coordinates
func (f *fixture) listing(t *testing.T, name string, lat, lng float64, offered ...string) (policy.Actor, *entities.Provider) {
	t.Helper()
	owner := f.register(t, strings.ToLower(strings.ReplaceAll(name, " ", ""))+"@example.com", entities.RoleProvider)
	p, err := f.directory.Create(context.Background(), owner, listingInput(name, lat, lng, offered...))
	require.NoError(t, err)
	return owner, p
}

func listingInput(name string, lat, lng float64, offered ...string) services.ListingInput {
	return services.ListingInput{
		BusinessName: &name,
		Latitude:     &lat,
		Longitude:    &lng,
		Services:     offered,
	}
}

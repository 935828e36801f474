// Package bootstrap assembles the store, clients and services shared by the
// API server, the stream gateway and the operator CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rudzz/marketplace/internal/adapters/database"
	"github.com/rudzz/marketplace/internal/adapters/memory"
	"github.com/rudzz/marketplace/internal/adapters/search"
	"github.com/rudzz/marketplace/internal/adapters/security"
	"github.com/rudzz/marketplace/internal/application/services"
	"github.com/rudzz/marketplace/internal/domain/providers"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	"github.com/rudzz/marketplace/internal/infrastructure/clients/postgres"
	redisclient "github.com/rudzz/marketplace/internal/infrastructure/clients/redis"
	tsclient "github.com/rudzz/marketplace/internal/infrastructure/clients/typesense"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
	"github.com/rudzz/marketplace/pkg/config"
	"github.com/rudzz/marketplace/pkg/jwtutil"
)

// Store is the set of repositories behind one storage driver
type Store struct {
	Users     repositories.UserRepository
	Providers repositories.ProviderRepository
	Reviews   repositories.ReviewRepository
	Messages  repositories.MessageRepository
	Blog      repositories.BlogRepository

	// DB is set for the postgres driver only
	DB *postgres.Client

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks that the store is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the store's connections
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewMemoryStore returns a process-local store
func NewMemoryStore() *Store {
	mem := memory.NewStore()
	return &Store{
		Users:     mem.Users(),
		Providers: mem.Providers(),
		Reviews:   mem.Reviews(),
		Messages:  mem.Messages(),
		Blog:      mem.Blog(),
		ping:      func(context.Context) error { return mem.Ping() },
	}
}

// NewPostgresStore returns a store over an open PostgreSQL client
func NewPostgresStore(client *postgres.Client) *Store {
	return &Store{
		Users:     database.NewUserAdapter(client),
		Providers: database.NewProviderAdapter(client),
		Reviews:   database.NewReviewAdapter(client),
		Messages:  database.NewMessageAdapter(client),
		Blog:      database.NewBlogAdapter(client),
		DB:        client,
		ping:      client.Ping,
		close:     client.Close,
	}
}

// OpenStore connects the store selected by STORAGE_DRIVER
func OpenStore(cfg *config.Config) (*Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		return NewMemoryStore(), nil
	case config.StorageDriverPostgres:
		client, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(client), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// OpenRedis connects to Redis, or returns nil when it is disabled
func OpenRedis(cfg *config.Config) (*redisclient.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	return redisclient.NewClient(&cfg.Redis)
}

// OpenListingIndex connects to Typesense and ensures the listings
// collection, or returns nil when the index is disabled
func OpenListingIndex(ctx context.Context, cfg *config.Config) (*search.TypesenseAdapter, *tsclient.Client, error) {
	if !cfg.Typesense.Enabled {
		return nil, nil, nil
	}
	client, err := tsclient.NewClient(&cfg.Typesense)
	if err != nil {
		return nil, nil, err
	}
	if err := client.InitSchema(ctx); err != nil {
		return nil, nil, err
	}
	return search.NewTypesenseAdapter(client), client, nil
}

// NewTokenIssuer builds the JWT issuer from the auth settings
func NewTokenIssuer(cfg *config.AuthConfig) *jwtutil.JWTUtil {
	return jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWTSecret,
		Issuer:          cfg.Issuer,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
}

// Services is the application layer over one store
type Services struct {
	Auth      *services.AuthService
	Users     *services.UserService
	Directory *services.DirectoryService
	Reviews   *services.ReviewService
	Messages  *services.MessageService
	Blog      *services.BlogService
}

// Options carries the optional collaborators of the application layer.
// Nil fields disable the feature they back.
type Options struct {
	EventBus     providers.EventBus
	ListingIndex providers.ListingIndex
	UserCache    providers.CacheProvider
	Metrics      *observability.DomainMetrics
	BcryptCost   int
}

// NewServices wires the application services
func NewServices(store *Store, tokens providers.TokenIssuer, opts Options) *Services {
	users := store.Users
	if opts.UserCache != nil {
		users = database.NewCachedUserAdapter(users, opts.UserCache)
	}

	svc := &Services{
		Auth:      services.NewAuthService(users, security.NewBcryptHasher(opts.BcryptCost), tokens),
		Users:     services.NewUserService(users, store.Providers),
		Directory: services.NewDirectoryService(store.Providers),
		Reviews:   services.NewReviewService(store.Reviews, store.Providers),
		Messages:  services.NewMessageService(store.Messages, users),
		Blog:      services.NewBlogService(store.Blog),
	}

	if opts.ListingIndex != nil {
		svc.Users.SetListingIndex(opts.ListingIndex)
		svc.Directory.SetListingIndex(opts.ListingIndex)
	}
	if opts.EventBus != nil {
		svc.Messages.SetEventBus(opts.EventBus)
	}
	if opts.Metrics != nil {
		svc.Auth.SetMetrics(opts.Metrics)
		svc.Reviews.SetMetrics(opts.Metrics)
		svc.Messages.SetMetrics(opts.Metrics)
	}
	return svc
}

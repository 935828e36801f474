package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rudzz/marketplace/internal/adapters/database"
	"github.com/rudzz/marketplace/internal/adapters/security"
	"github.com/rudzz/marketplace/internal/application/services"
	"github.com/rudzz/marketplace/internal/bootstrap"
	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/policy"
)

var (
	// Seed flags
	seedPassword   string
	adminEmail     string
	skipMigrations bool
)

// seedCmd inserts demo accounts, listings and posts
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Apply the schema and insert demo data",
	Long: `Apply the Postgres schema and insert a small demo data set: an admin,
two providers with listings, a customer with reviews, and a published post.

Every demo account shares the password given by --password.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedPassword, "password", "marketplace-demo", "Password for every demo account")
	seedCmd.Flags().StringVar(&adminEmail, "admin-email", "admin@marketplace.local", "Email of the demo admin")
	seedCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply the schema first")
}

type demoListing struct {
	email    string
	first    string
	last     string
	business string
	address  string
	lat      float64
	lng      float64
	services []string
}

var demoListings = []demoListing{
	{
		email: "ada@marketplace.local", first: "Ada", last: "Okafor",
		business: "Okafor Plumbing", address: "12 Marina Rd, Lagos",
		lat: 6.4541, lng: 3.3947, services: []string{"Plumbing", "Water Heaters"},
	},
	{
		email: "tunde@marketplace.local", first: "Tunde", last: "Bello",
		business: "Bello Electrical", address: "4 Allen Ave, Ikeja",
		lat: 6.6018, lng: 3.3515, services: []string{"Electrical", "Solar Installation"},
	},
}

func runSeed(ctx context.Context) error {

	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if store.DB != nil && !skipMigrations {
		if err := database.ApplySchema(ctx, store.DB.DB()); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		log.Info().Msg("schema applied")
	}

	svc := bootstrap.NewServices(store, bootstrap.NewTokenIssuer(&cfg.Auth), bootstrap.Options{})

	// Admins cannot self-register, so the admin goes straight to the repository
	hasher := security.NewBcryptHasher(0)
	digest, err := hasher.Hash(seedPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	email, err := entities.NormalizeEmail(adminEmail)
	if err != nil {
		return err
	}
	admin := &entities.User{
		Email:        &email,
		PasswordHash: digest,
		FirstName:    "Market",
		LastName:     "Admin",
		Role:         entities.RoleAdmin,
		IsActive:     true,
	}
	if err := store.Users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	fmt.Printf("admin        %s (id %d)\n", email, admin.ID)

	var listingIDs []int64
	for _, d := range demoListings {
		res, err := svc.Auth.Register(ctx, services.RegisterInput{
			Email:     d.email,
			Password:  seedPassword,
			FirstName: d.first,
			LastName:  d.last,
			Role:      string(entities.RoleProvider),
		})
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", d.email, err)
		}
		actor := policy.Actor{UserID: res.User.ID, Role: res.User.Role}

		business, address, lat, lng := d.business, d.address, d.lat, d.lng
		listing, err := svc.Directory.Create(ctx, actor, services.ListingInput{
			BusinessName: &business,
			Address:      &address,
			Latitude:     &lat,
			Longitude:    &lng,
			Services:     d.services,
			ServicesSet:  true,
		})
		if err != nil {
			return fmt.Errorf("failed to create listing for %s: %w", d.email, err)
		}
		listingIDs = append(listingIDs, listing.ID)
		fmt.Printf("provider     %s -> listing %d %q\n", d.email, listing.ID, listing.BusinessName)
	}

	customer, err := svc.Auth.Register(ctx, services.RegisterInput{
		Email:     "chidi@marketplace.local",
		Password:  seedPassword,
		FirstName: "Chidi",
		LastName:  "Eze",
	})
	if err != nil {
		return fmt.Errorf("failed to register customer: %w", err)
	}
	customerActor := policy.Actor{UserID: customer.User.ID, Role: customer.User.Role}
	fmt.Printf("customer     %s (id %d)\n", *customer.User.Email, customer.User.ID)

	for i, id := range listingIDs {
		if _, err := svc.Reviews.Create(ctx, customerActor, id, 5-i, "Quick, tidy and fairly priced."); err != nil {
			return fmt.Errorf("failed to review listing %d: %w", id, err)
		}
	}

	adminActor := policy.Actor{UserID: admin.ID, Role: admin.Role}
	post, err := svc.Blog.Create(ctx, adminActor, services.CreatePostInput{
		Title:   "Welcome to the marketplace",
		Content: "Find trusted local providers, read reviews from real customers, and message them directly.",
		Status:  string(entities.PostStatusPublished),
	})
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	fmt.Printf("post         /%s (id %d)\n", post.Slug, post.ID)

	return nil
}

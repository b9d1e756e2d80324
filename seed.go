package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/farmstore/backend/internal/auth"
	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

// catalogSeed is the initial product catalog, inserted only into an empty
// database.
func catalogSeed() []entity.Product {
	return []entity.Product{
		{ID: "soil-001", Name: "Premium Garden Soil", Size: "5kg", Price: 25, Stock: 500, Description: "Screened loam enriched with compost, ready for beds and pots.", Image: "/images/garden-soil-5kg.jpg", Category: entity.CategorySoil, IsActive: true},
		{ID: "soil-002", Name: "Premium Garden Soil", Size: "25kg", Price: 110, Stock: 200, Description: "Bulk sack of screened loam enriched with compost.", Image: "/images/garden-soil-25kg.jpg", Category: entity.CategorySoil, IsActive: true},
		{ID: "soil-003", Name: "Vermicast Potting Mix", Size: "5kg", Price: 45, Stock: 300, Description: "Worm-cast blend for seedlings and container gardens.", Image: "/images/vermicast-5kg.jpg", Category: entity.CategorySoil, IsActive: true},
		{ID: "soil-004", Name: "Carbonized Rice Hull", Size: "10kg", Price: 60, Stock: 250, Description: "Soil conditioner for drainage and aeration.", Image: "/images/rice-hull-10kg.jpg", Category: entity.CategorySoil, IsActive: true},
		{ID: "hogs-001", Name: "Native Piglet", Size: "weanling", Price: 400, Stock: 40, Description: "Healthy native weanling, dewormed and vaccinated.", Image: "/images/native-piglet.jpg", Category: entity.CategoryHogs, IsActive: true},
		{ID: "hogs-002", Name: "Large White Piglet", Size: "weanling", Price: 2500, Stock: 25, Description: "Fast-growing Large White weanling from accredited breeders.", Image: "/images/large-white-piglet.jpg", Category: entity.CategoryHogs, IsActive: true},
		{ID: "hogs-003", Name: "Fattener Hog", Size: "60kg", Price: 9500, Stock: 10, Description: "Market-weight fattener, ready for finishing.", Image: "/images/fattener-hog.jpg", Category: entity.CategoryHogs, IsActive: true},
	}
}

// seedAdmin creates the initial admin account when none exists. Credentials
// come from the environment so deployments never ship the defaults.
func seedAdmin(ctx context.Context, users repository.UserRepository) error {
	admins, err := users.FindAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}
	if len(admins) > 0 {
		return nil
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		slog.Warn("No admin user and ADMIN_EMAIL/ADMIN_PASSWORD unset; skipping admin seed")
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &entity.User{
		ID:           uuid.NewString(),
		Name:         "Store Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         entity.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	slog.Info("Seeded admin user", "email", email)
	return nil
}

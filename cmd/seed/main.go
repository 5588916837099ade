// Command seed fills a development database with an admin, a vet, a pet
// owner with one pet, and the clinic's service catalogue.
package main

import (
	"context"
	"log"

	"github.com/dmehra2102/prod-golang-projects/vetcare/config"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/pet"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/vetcare/pkg/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.App.Environment == "production" {
		log.Fatal("refusing to seed a production database")
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		zl.Fatal("db connection failed", zap.Error(err))
	}
	if err := database.Migrate(db, zl); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	pets := repository.NewPetRepository(db)
	services := repository.NewCatalogRepository(db)

	mustUser := func(email, password, first, last string, role domain.Role) *domain.User {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			zl.Fatal("hashing password", zap.Error(err))
		}
		u := &domain.User{
			Email:        email,
			PasswordHash: string(hash),
			FirstName:    first,
			LastName:     last,
			Role:         role,
			IsActive:     true,
		}
		if err := users.Create(ctx, u); err != nil {
			zl.Fatal("creating user", zap.String("email", email), zap.Error(err))
		}
		zl.Info("user created", zap.String("email", email), zap.String("password", password), zap.String("role", string(role)))
		return u
	}

	mustUser("admin@vetcare.local", "admin12345", "Clinic", "Admin", domain.RoleAdmin)
	mustUser("vet@vetcare.local", "vet1234567", "Dana", "Hart", domain.RoleVet)
	owner := mustUser("owner@vetcare.local", "owner12345", "Sam", "Reyes", domain.RoleOwner)

	age, weight := 4, 12.5
	rex := &pet.Pet{
		OwnerID:  owner.ID,
		Name:     "Rex",
		Species:  "dog",
		Breed:    "Beagle",
		Age:      &age,
		Weight:   &weight,
		IsActive: true,
	}
	if err := pets.Create(ctx, rex); err != nil {
		zl.Fatal("creating pet", zap.Error(err))
	}
	zl.Info("pet created", zap.Int64("id", rex.ID), zap.String("name", rex.Name))

	for _, s := range []struct {
		name     string
		price    float64
		duration int
	}{
		{"General check-up", 45, 30},
		{"Vaccination", 30, 15},
		{"Dental cleaning", 120, 60},
		{"Grooming", 50, 45},
	} {
		price, duration := s.price, s.duration
		svc := &catalog.Service{
			Name:            s.name,
			Price:           &price,
			DurationMinutes: &duration,
			IsActive:        true,
		}
		if err := services.Create(ctx, svc); err != nil {
			zl.Fatal("creating service", zap.String("name", s.name), zap.Error(err))
		}
		zl.Info("service created", zap.Int64("id", svc.ID), zap.String("name", svc.Name))
	}

	zl.Info("seed complete")
}

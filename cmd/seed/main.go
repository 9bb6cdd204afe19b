package main

import (
	"context"
	"fmt"
	"log"

	"trekka/internal/fleet"
	"trekka/internal/shared/config"
	"trekka/internal/shared/database"

	"github.com/google/uuid"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Trekka Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Order matters due to foreign key constraints
	// Delete in reverse dependency order
	tables := []string{
		"payments",
		"bookings",
		"seat_reservations",
		"seats",
		"vehicles",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Disable foreign key constraints temporarily
	if err := tx.Exec("SET CONSTRAINTS ALL DEFERRED").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to defer constraints: %w", err)
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	// Re-enable foreign key constraints
	if err := tx.Exec("SET CONSTRAINTS ALL IMMEDIATE").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to restore constraints: %w", err)
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	// Company IDs are issued by the external identity provider; use fixed
	// demo UUIDs so seeded data is addressable from API clients.
	companyIDs := map[string]uuid.UUID{
		"sunrise": uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		"horizon": uuid.MustParse("22222222-2222-2222-2222-222222222222"),
	}

	if err := s.SeedVehicles(companyIDs); err != nil {
		return fmt.Errorf("failed to seed vehicles: %w", err)
	}

	// Clear Redis cache to ensure fresh state
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	return nil
}

// SeedVehicles creates demo vehicles with generated seat maps
func (s *Seeder) SeedVehicles(companyIDs map[string]uuid.UUID) error {
	fmt.Println("  🚌 Seeding vehicles...")

	vehiclesData := []struct {
		company      string
		registration string
		make         string
		model        string
		year         int
		capacity     int
		vehicleType  string
		status       string
		pricePerSeat float64
	}{
		{"sunrise", "LAG-123-XY", "Toyota", "Coaster", 2021, 32, "STANDARD", fleet.VehicleStatusActive, 4500},
		{"sunrise", "LAG-456-AB", "Mercedes-Benz", "Sprinter", 2023, 14, "LUXURY", fleet.VehicleStatusActive, 9000},
		{"sunrise", "LAG-789-CD", "Suzuki", "Every", 2019, 7, "MINI", fleet.VehicleStatusMaintenance, 2500},
		{"horizon", "ABJ-321-EF", "Scania", "Marcopolo", 2022, 48, "STANDARD", fleet.VehicleStatusActive, 6000},
		{"horizon", "ABJ-654-GH", "Toyota", "Hiace", 2020, 15, "STANDARD", fleet.VehicleStatusInactive, 3500},
	}

	for _, vehicleData := range vehiclesData {
		vehicle := fleet.Vehicle{
			ID:                 uuid.New(),
			CompanyID:          companyIDs[vehicleData.company],
			RegistrationNumber: vehicleData.registration,
			Make:               vehicleData.make,
			Model:              vehicleData.model,
			Year:               vehicleData.year,
			Capacity:           vehicleData.capacity,
			VehicleType:        vehicleData.vehicleType,
			Status:             vehicleData.status,
			PricePerSeat:       vehicleData.pricePerSeat,
		}
		vehicle.GenerateSeats()

		if err := s.db.PostgreSQL.Create(&vehicle).Error; err != nil {
			return fmt.Errorf("failed to create vehicle %s: %w", vehicle.RegistrationNumber, err)
		}

		fmt.Printf("    ✅ Created vehicle: %s (%d seats, %s)\n",
			vehicle.RegistrationNumber, vehicle.Capacity, vehicle.Status)
	}

	return nil
}

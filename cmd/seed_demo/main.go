package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/xelth-com/watibridge/internal/config"
	"github.com/xelth-com/watibridge/internal/database"
	"github.com/xelth-com/watibridge/internal/locations"
	"github.com/xelth-com/watibridge/internal/models"
	"github.com/xelth-com/watibridge/internal/store"
	"github.com/xelth-com/watibridge/internal/utils"
)

// demoMappings are the factory lines that appear on the sample listings
var demoMappings = []models.LocationMapping{
	{LocationCode: "AVINA11", Warehouse: "Finished Goods - Line 1 - SEMSB", Description: "Avina line 11"},
	{LocationCode: "AVINA12", Warehouse: "Finished Goods - Line 2 - SEMSB", Description: "Avina line 12"},
	{LocationCode: "AVINA14", Warehouse: "Finished Goods - Line 4 - SEMSB", Description: "Avina line 14"},
	{LocationCode: "AVINA15", Warehouse: "Finished Goods - Line 5 - SEMSB", Description: "Avina line 15"},
	{LocationCode: "STORE", Warehouse: "Stores - SEMSB", Description: "Main store"},
}

func main() {
	email := flag.String("email", "admin@example.com", "administrator email")
	password := flag.String("password", "admin", "administrator password")
	flag.Parse()

	fmt.Println("🌱 WATI Bridge Demo Data Seeder")
	fmt.Println(strings.Repeat("=", 60))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("✅ Connected to database")

	fmt.Println("🔨 Running database migrations...")
	if err := db.AutoMigrate(
		&models.UserAuth{},
		&models.LocationMapping{},
		&models.WatiSettings{},
		&models.WebhookLog{},
	); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	ctx := context.Background()

	// 1. Administrator
	var count int64
	db.Model(&models.UserAuth{}).Where("email = ?", *email).Count(&count)
	if count == 0 {
		hash, err := utils.HashPassword(*password)
		if err != nil {
			log.Fatalf("❌ Failed to hash password: %v", err)
		}
		admin := models.UserAuth{Email: *email, Password: hash, Name: "Administrator", Role: "admin", IsActive: true}
		if err := db.Create(&admin).Error; err != nil {
			log.Fatalf("❌ Failed to create administrator: %v", err)
		}
		fmt.Printf("👤 Created administrator %s\n", *email)
	} else {
		fmt.Printf("👤 Administrator %s already exists\n", *email)
	}

	// 2. Settings (seeded from the environment on first load)
	s, err := store.NewGormSettingsStore(db.DB, store.DefaultSettings(cfg)).Load(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to load settings: %v", err)
	}
	fmt.Printf("⚙️  Settings ready (test mode: %v)\n", s.TestMode)

	// 3. Location mappings
	mappings := locations.NewGormStore(db.DB)
	for _, m := range demoMappings {
		m.Active = true
		err := mappings.Save(ctx, &m)
		switch {
		case errors.Is(err, locations.ErrDuplicateCode):
			fmt.Printf("   = %s already mapped\n", m.LocationCode)
		case err != nil:
			log.Fatalf("❌ Failed to save %s: %v", m.LocationCode, err)
		default:
			fmt.Printf("   + %s -> %s\n", m.LocationCode, m.Warehouse)
		}
	}

	fmt.Println()
	fmt.Println("✅ Demo data ready")
}

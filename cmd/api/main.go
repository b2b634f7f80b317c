package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/watibridge/internal/archive"
	"github.com/xelth-com/watibridge/internal/config"
	"github.com/xelth-com/watibridge/internal/database"
	"github.com/xelth-com/watibridge/internal/erp"
	"github.com/xelth-com/watibridge/internal/erp/erpnext"
	"github.com/xelth-com/watibridge/internal/erp/odoo"
	"github.com/xelth-com/watibridge/internal/handlers"
	"github.com/xelth-com/watibridge/internal/locations"
	"github.com/xelth-com/watibridge/internal/models"
	"github.com/xelth-com/watibridge/internal/orders"
	"github.com/xelth-com/watibridge/internal/pipeline"
	"github.com/xelth-com/watibridge/internal/store"
	"github.com/xelth-com/watibridge/internal/utils"
	"github.com/xelth-com/watibridge/internal/wati"
	"github.com/xelth-com/watibridge/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 3. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.LocationMapping{},
		&models.WatiSettings{},
		&models.WebhookLog{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Stores and ERP backend
	mappings := locations.NewGormStore(db.DB)
	settings := store.NewGormSettingsStore(db.DB, store.DefaultSettings(cfg))
	logs := store.NewGormLogStore(db.DB)

	backend := newBackend(cfg)
	log.Printf("🏭 ERP backend: %s", backend.Name())

	// 5. Dashboard events
	hub := websocket.NewHub()
	go hub.Run()

	processor := pipeline.NewProcessor(
		logs,
		settings,
		orders.NewBuilder(locations.NewMapper(mappings), backend),
		archive.New(cfg.Archive),
		func(s *models.WatiSettings) pipeline.Messenger {
			return wati.NewClient(s.APIEndpoint, s.APIKey, cfg.Wati.Timeout)
		},
		hub,
		pipeline.Options{
			MaxConcurrent:   cfg.Pipeline.MaxConcurrent,
			Timeout:         cfg.Pipeline.Timeout,
			FallbackCompany: cfg.ERP.Company,
		},
	)

	// 6. Set up HTTP router
	router := handlers.NewRouter(handlers.Deps{
		Config:    cfg,
		DB:        db.DB,
		Processor: processor,
		Mappings:  mappings,
		Settings:  settings,
		Logs:      logs,
		Backend:   backend,
		Hub:       hub,
	})

	// 7. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Server starting on port %s [Prefix: '%s']\n", cfg.Port, cfg.PathPrefix)
		log.Printf("🔗 Webhook URL for WATI: %s", cfg.WebhookURL())
		for _, u := range utils.LocalWebhookURLs(cfg.Port, cfg.PathPrefix) {
			log.Printf("   LAN: %s", u)
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	// In-flight runs finish inside the pipeline timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.Timeout+5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	hub.Stop()

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

func newBackend(cfg *config.Config) erp.Backend {
	if cfg.ERP.Backend == config.BackendOdoo {
		return odoo.NewBackend(odoo.NewClient(cfg.Odoo.URL, cfg.Odoo.Database, cfg.Odoo.Username, cfg.Odoo.Password))
	}
	return erpnext.New(cfg.ERP.URL, cfg.ERP.APIKey, cfg.ERP.APISecret)
}

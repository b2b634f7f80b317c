package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ERP backends supported by the order builder
const (
	BackendERPNext = "erpnext"
	BackendOdoo    = "odoo"
)

// Config holds all application configuration
type Config struct {
	Port       string
	PathPrefix string
	PublicURL  string
	JWTSecret  string
	Database   DatabaseConfig
	Wati       WatiConfig
	ERP        ERPConfig
	Odoo       OdooConfig
	Pipeline   PipelineConfig
	Archive    ArchiveConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Debug    bool
}

// WatiConfig holds WATI API settings. They only seed the persisted settings row.
type WatiConfig struct {
	APIEndpoint  string
	APIKey       string
	WebhookToken string
	Timeout      time.Duration
}

// ERPConfig holds ERPNext connection settings
type ERPConfig struct {
	Backend   string
	URL       string
	APIKey    string
	APISecret string
	Company   string
}

// OdooConfig holds Odoo connection settings, used when ERP_BACKEND=odoo
type OdooConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

// PipelineConfig bounds webhook processing
type PipelineConfig struct {
	MaxConcurrent int
	Timeout       time.Duration
	RateLimit     float64
	RateBurst     int
}

// ArchiveConfig selects where received PDFs are kept
type ArchiveConfig struct {
	Dir         string
	FTPHost     string
	FTPPort     int
	FTPUsername string
	FTPPassword string
	FTPDir      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg := &Config{
		Port:       getEnv("PORT", "3210"),
		PathPrefix: strings.TrimRight(os.Getenv("PATH_PREFIX"), "/"),
		PublicURL:  strings.TrimRight(os.Getenv("PUBLIC_URL"), "/"),
		JWTSecret:  jwtSecret,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "watibridge"),
			Debug:    getBool("DB_DEBUG", false),
		},
		Wati: WatiConfig{
			APIEndpoint:  strings.TrimRight(os.Getenv("WATI_API_ENDPOINT"), "/"),
			APIKey:       os.Getenv("WATI_API_KEY"),
			WebhookToken: os.Getenv("WATI_WEBHOOK_TOKEN"),
			Timeout:      time.Duration(getInt("WATI_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		ERP: ERPConfig{
			Backend:   strings.ToLower(getEnv("ERP_BACKEND", BackendERPNext)),
			URL:       os.Getenv("ERP_URL"),
			APIKey:    os.Getenv("ERP_API_KEY"),
			APISecret: os.Getenv("ERP_API_SECRET"),
			Company:   os.Getenv("ERP_COMPANY"),
		},
		Odoo: OdooConfig{
			URL:      os.Getenv("ODOO_URL"),
			Database: os.Getenv("ODOO_DB"),
			Username: os.Getenv("ODOO_USERNAME"),
			Password: os.Getenv("ODOO_PASSWORD"),
		},
		Pipeline: PipelineConfig{
			MaxConcurrent: getInt("PIPELINE_MAX_CONCURRENT", 4),
			Timeout:       time.Duration(getInt("PIPELINE_TIMEOUT_SECONDS", 120)) * time.Second,
			RateLimit:     getFloat("WEBHOOK_RATE_LIMIT", 5),
			RateBurst:     getInt("WEBHOOK_RATE_BURST", 10),
		},
		Archive: ArchiveConfig{
			Dir:         getEnv("ARCHIVE_DIR", "./attachments"),
			FTPHost:     os.Getenv("ARCHIVE_FTP_HOST"),
			FTPPort:     getInt("ARCHIVE_FTP_PORT", 21),
			FTPUsername: os.Getenv("ARCHIVE_FTP_USERNAME"),
			FTPPassword: os.Getenv("ARCHIVE_FTP_PASSWORD"),
			FTPDir:      getEnv("ARCHIVE_FTP_DIR", "/"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.ERP.Backend {
	case BackendERPNext, BackendOdoo:
	default:
		return fmt.Errorf("ERP_BACKEND must be %q or %q, got %q", BackendERPNext, BackendOdoo, c.ERP.Backend)
	}
	if c.Pipeline.MaxConcurrent <= 0 {
		return fmt.Errorf("PIPELINE_MAX_CONCURRENT must be positive")
	}
	return nil
}

// WebhookURL is the address WATI should deliver events to
func (c *Config) WebhookURL() string {
	base := c.PublicURL
	if base == "" {
		base = "http://localhost:" + c.Port
	}
	return base + c.PathPrefix + "/api/webhooks/wati"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

// Package store persists the settings record and the webhook log.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/xelth-com/watibridge/internal/config"
	"github.com/xelth-com/watibridge/internal/models"
)

// ErrNotFound is returned for unknown record ids
var ErrNotFound = errors.New("record not found")

// SettingsStore loads and saves the single settings record
type SettingsStore interface {
	// Load returns the settings, creating them from defaults on first use
	Load(ctx context.Context) (*models.WatiSettings, error)
	Save(ctx context.Context, s *models.WatiSettings) error
}

// DefaultSettings builds the first settings record from the environment
func DefaultSettings(cfg *config.Config) models.WatiSettings {
	return models.WatiSettings{
		ID:                     models.SettingsID,
		APIEndpoint:            cfg.Wati.APIEndpoint,
		APIKey:                 cfg.Wati.APIKey,
		WebhookToken:           cfg.Wati.WebhookToken,
		WebhookURL:             cfg.WebhookURL(),
		DefaultCompany:         cfg.ERP.Company,
		NotifySenderOnSuccess:  true,
		NotifySenderOnError:    true,
		SuccessMessageTemplate: models.DefaultSuccessTemplate,
		ParseErrorTemplate:     models.DefaultParseErrorTemplate,
		CreateErrorTemplate:    models.DefaultCreateErrorTemplate,
	}
}

// GormSettingsStore keeps settings in the wati_settings table
type GormSettingsStore struct {
	db       *gorm.DB
	defaults models.WatiSettings
}

// NewGormSettingsStore creates a settings store seeded with defaults
func NewGormSettingsStore(db *gorm.DB, defaults models.WatiSettings) *GormSettingsStore {
	defaults.ID = models.SettingsID
	return &GormSettingsStore{db: db, defaults: defaults}
}

func (s *GormSettingsStore) Load(ctx context.Context) (*models.WatiSettings, error) {
	var out models.WatiSettings
	err := s.db.WithContext(ctx).First(&out, models.SettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		out = s.defaults
		if err := s.db.WithContext(ctx).Create(&out).Error; err != nil {
			return nil, fmt.Errorf("seed settings: %w", err)
		}
		return &out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	// derived, never edited
	out.WebhookURL = s.defaults.WebhookURL
	return &out, nil
}

func (s *GormSettingsStore) Save(ctx context.Context, settings *models.WatiSettings) error {
	settings.ID = models.SettingsID
	settings.WebhookURL = s.defaults.WebhookURL
	return s.db.WithContext(ctx).Save(settings).Error
}

// MemorySettingsStore is an in-process SettingsStore
type MemorySettingsStore struct {
	mu       sync.Mutex
	settings models.WatiSettings
}

// NewMemorySettingsStore creates a store holding s
func NewMemorySettingsStore(s models.WatiSettings) *MemorySettingsStore {
	s.ID = models.SettingsID
	return &MemorySettingsStore{settings: s}
}

func (m *MemorySettingsStore) Load(context.Context) (*models.WatiSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.settings
	return &out, nil
}

func (m *MemorySettingsStore) Save(_ context.Context, s *models.WatiSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = models.SettingsID
	m.settings = *s
	return nil
}

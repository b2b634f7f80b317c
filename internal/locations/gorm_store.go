package locations

import (
	"context"
	"errors"
	"fmt"

	"github.com/xelth-com/watibridge/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by Get and Delete for unknown ids
	ErrNotFound = errors.New("location mapping not found")
	// ErrDuplicateCode is returned when another mapping already uses the code
	ErrDuplicateCode = errors.New("location code already mapped")
)

// GormStore keeps mappings in the location_mappings table
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindActive(ctx context.Context, code string) (*models.LocationMapping, error) {
	var m models.LocationMapping
	err := s.db.WithContext(ctx).
		Where("location_code = ? AND active = ?", models.NormalizeLocationCode(code), true).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query location mapping: %w", err)
	}
	return &m, nil
}

func (s *GormStore) List(ctx context.Context) ([]models.LocationMapping, error) {
	var out []models.LocationMapping
	if err := s.db.WithContext(ctx).Order("location_code").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) Get(ctx context.Context, id uint) (*models.LocationMapping, error) {
	var m models.LocationMapping
	err := s.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Save creates or updates the mapping. Active=false is persisted explicitly.
func (s *GormStore) Save(ctx context.Context, m *models.LocationMapping) error {
	active := m.Active
	err := s.db.WithContext(ctx).Save(m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateCode
	}
	if err != nil {
		return err
	}
	// the column default turns a zero bool into true on insert
	if !active {
		if err := s.db.WithContext(ctx).Model(m).Update("active", false).Error; err != nil {
			return err
		}
		m.Active = false
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.LocationMapping{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Package locations resolves location codes printed on the listing to ERP warehouses.
package locations

import (
	"context"
	"errors"
	"fmt"

	"github.com/xelth-com/watibridge/internal/models"
)

// ErrMappingNotFound is returned when no active mapping exists for a code
var ErrMappingNotFound = errors.New("mapping not found")

// Store reads and maintains the mapping table
type Store interface {
	FindActive(ctx context.Context, code string) (*models.LocationMapping, error)
	List(ctx context.Context) ([]models.LocationMapping, error)
	Get(ctx context.Context, id uint) (*models.LocationMapping, error)
	Save(ctx context.Context, m *models.LocationMapping) error
	Delete(ctx context.Context, id uint) error
}

// Mapper is the exact-match location code lookup
type Mapper struct {
	store Store
}

// NewMapper creates a mapper over the given store
func NewMapper(store Store) *Mapper {
	return &Mapper{store: store}
}

// Resolve returns the warehouse mapped to code
func (m *Mapper) Resolve(ctx context.Context, code string) (string, error) {
	code = models.NormalizeLocationCode(code)
	if code == "" {
		return "", fmt.Errorf("empty location code: %w", ErrMappingNotFound)
	}
	mapping, err := m.store.FindActive(ctx, code)
	if err != nil {
		return "", err
	}
	if mapping == nil || mapping.Warehouse == "" {
		return "", fmt.Errorf("location %s: %w", code, ErrMappingNotFound)
	}
	return mapping.Warehouse, nil
}

// Resolution is the outcome of resolving a batch of codes
type Resolution struct {
	// Warehouses maps each resolved code to its warehouse
	Warehouses map[string]string
	// Missing lists unresolved codes in first-seen order, without duplicates
	Missing []string
}

// ResolveAll looks every distinct code up once. Lookup failures other than a
// missing mapping abort the batch.
func (m *Mapper) ResolveAll(ctx context.Context, codes []string) (Resolution, error) {
	res := Resolution{Warehouses: make(map[string]string)}
	seen := make(map[string]bool)

	for _, raw := range codes {
		code := models.NormalizeLocationCode(raw)
		if seen[code] {
			continue
		}
		seen[code] = true

		wh, err := m.Resolve(ctx, code)
		switch {
		case err == nil:
			res.Warehouses[code] = wh
		case errors.Is(err, ErrMappingNotFound):
			res.Missing = append(res.Missing, code)
		default:
			return Resolution{}, fmt.Errorf("resolve %s: %w", code, err)
		}
	}
	return res, nil
}

// Warehouse returns the resolved warehouse for a raw code
func (r Resolution) Warehouse(code string) (string, bool) {
	wh, ok := r.Warehouses[models.NormalizeLocationCode(code)]
	return wh, ok
}

// MissingMessages renders one error line per unresolved code
func (r Resolution) MissingMessages() []string {
	out := make([]string, 0, len(r.Missing))
	for _, code := range r.Missing {
		out = append(out, fmt.Sprintf("Location '%s' not found in Location Mapping", code))
	}
	return out
}

package locations

import (
	"context"
	"sort"
	"sync"

	"github.com/xelth-com/watibridge/internal/models"
)

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu     sync.RWMutex
	nextID uint
	rows   map[uint]models.LocationMapping
}

// NewMemoryStore creates a store holding the given mappings
func NewMemoryStore(mappings ...models.LocationMapping) *MemoryStore {
	s := &MemoryStore{rows: make(map[uint]models.LocationMapping)}
	for i := range mappings {
		_ = s.Save(context.Background(), &mappings[i])
	}
	return s
}

func (s *MemoryStore) FindActive(_ context.Context, code string) (*models.LocationMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code = models.NormalizeLocationCode(code)
	for _, m := range s.rows {
		if m.LocationCode == code && m.Active {
			out := m
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.LocationMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LocationMapping, 0, len(s.rows))
	for _, m := range s.rows {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationCode < out[j].LocationCode })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id uint) (*models.LocationMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) Save(_ context.Context, m *models.LocationMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = m.BeforeSave(nil)
	for id, other := range s.rows {
		if id != m.ID && other.LocationCode == m.LocationCode {
			return ErrDuplicateCode
		}
	}
	if m.ID > s.nextID {
		s.nextID = m.ID
	}
	if m.ID == 0 {
		s.nextID++
		m.ID = s.nextID
	}
	s.rows[m.ID] = *m
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

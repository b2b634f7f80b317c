package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/xelth-com/watibridge/internal/models"
)

// DefaultLogLimit bounds List when no limit is given
const DefaultLogLimit = 50

// LogFilter narrows a webhook log listing
type LogFilter struct {
	Status models.WebhookStatus
	WaID   string
	Limit  int
}

func (f LogFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 500 {
		return DefaultLogLimit
	}
	return f.Limit
}

// LogStore persists webhook logs
type LogStore interface {
	Create(ctx context.Context, l *models.WebhookLog) error
	Update(ctx context.Context, l *models.WebhookLog) error
	Get(ctx context.Context, id string) (*models.WebhookLog, error)
	// List returns the newest logs first
	List(ctx context.Context, f LogFilter) ([]models.WebhookLog, error)
}

// GormLogStore keeps logs in the webhook_logs table
type GormLogStore struct {
	db *gorm.DB
}

// NewGormLogStore creates a log store backed by db
func NewGormLogStore(db *gorm.DB) *GormLogStore {
	return &GormLogStore{db: db}
}

func (s *GormLogStore) Create(ctx context.Context, l *models.WebhookLog) error {
	return s.db.WithContext(ctx).Create(l).Error
}

func (s *GormLogStore) Update(ctx context.Context, l *models.WebhookLog) error {
	return s.db.WithContext(ctx).Save(l).Error
}

func (s *GormLogStore) Get(ctx context.Context, id string) (*models.WebhookLog, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var l models.WebhookLog
	err := s.db.WithContext(ctx).First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *GormLogStore) List(ctx context.Context, f LogFilter) ([]models.WebhookLog, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(f.limit())
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.WaID != "" {
		q = q.Where("whats_app_number = ?", f.WaID)
	}
	var out []models.WebhookLog
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MemoryLogStore is an in-process LogStore
type MemoryLogStore struct {
	mu   sync.RWMutex
	logs map[string]models.WebhookLog
}

// NewMemoryLogStore creates an empty log store
func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{logs: make(map[string]models.WebhookLog)}
}

func (m *MemoryLogStore) Create(_ context.Context, l *models.WebhookLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	m.logs[l.ID] = *l
	return nil
}

func (m *MemoryLogStore) Update(_ context.Context, l *models.WebhookLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[l.ID]; !ok {
		return ErrNotFound
	}
	l.UpdatedAt = time.Now().UTC()
	m.logs[l.ID] = *l
	return nil
}

func (m *MemoryLogStore) Get(_ context.Context, id string) (*models.WebhookLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.logs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (m *MemoryLogStore) List(_ context.Context, f LogFilter) ([]models.WebhookLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.WebhookLog, 0, len(m.logs))
	for _, l := range m.logs {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.WaID != "" && l.WhatsAppNumber != f.WaID {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > f.limit() {
		out = out[:f.limit()]
	}
	return out, nil
}

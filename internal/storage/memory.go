package storage

import (
	"context"
	"fmt"
	"sync"

	"intake/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory data structures.
// This provider is ideal for development, testing, and scenarios where data
// persistence is not required. It provides fast access but data is lost on restart.
type MemoryStorage struct {
	mu     sync.RWMutex
	leads  []*models.Lead // insertion order, IDs ascending
	nextID int64
}

// NewMemoryStorage creates a new memory-based storage instance
func NewMemoryStorage(config Config) (*MemoryStorage, error) {
	return &MemoryStorage{
		leads:  make([]*models.Lead, 0),
		nextID: 1,
	}, nil
}

// SaveLead stores a copy of lead and assigns the next ID
func (m *MemoryStorage) SaveLead(ctx context.Context, lead *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prepareLead(lead)
	lead.ID = m.nextID
	m.nextID++

	leadCopy := *lead
	m.leads = append(m.leads, &leadCopy)
	return nil
}

// GetLead retrieves a lead by its ID
func (m *MemoryStorage) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, lead := range m.leads {
		if lead.ID == id {
			// Return a copy
			leadCopy := *lead
			return &leadCopy, nil
		}
	}
	return nil, fmt.Errorf("lead %d: %w", id, ErrNotFound)
}

// ListLeads returns leads newest first
func (m *MemoryStorage) ListLeads(ctx context.Context, limit, offset int) ([]*models.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start, end := page(len(m.leads), limit, offset)
	result := make([]*models.Lead, 0, end-start)
	for i := start; i < end; i++ {
		leadCopy := *m.leads[len(m.leads)-1-i]
		result = append(result, &leadCopy)
	}
	return result, nil
}

// CountLeads returns the number of stored leads
func (m *MemoryStorage) CountLeads(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.leads), nil
}

// Ping always succeeds for in-memory storage
func (m *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for memory storage
func (m *MemoryStorage) Close() error {
	return nil
}

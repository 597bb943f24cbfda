package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"casemap/internal/models"
)

// MemoryStore keeps records in a slice guarded by a mutex.
type MemoryStore struct {
	records []models.CaseRecord
	nextID  int64
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty store. Ids start at 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// FindByTitleOrURL returns a copy of the first matching row.
func (m *MemoryStore) FindByTitleOrURL(_ context.Context, title, url string) (*models.CaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.indexOfKey(title, url); i >= 0 {
		rec := m.records[i]
		return &rec, nil
	}

	return nil, nil
}

// Insert assigns the next id. A title or url already present is rejected
// with ErrConflict, mirroring the unique indexes of the Postgres schema.
func (m *MemoryStore) Insert(_ context.Context, rec *models.CaseRecord) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("%w: nil record", ErrStorage)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOfKey(rec.Title, rec.URL) >= 0 {
		return 0, fmt.Errorf("%w: %w", ErrStorage, ErrConflict)
	}

	stored := *rec
	stored.ID = m.nextID
	stored.CreatedAt = time.Now().UTC()
	m.nextID++

	m.records = append(m.records, stored)

	return stored.ID, nil
}

// UpdateGeography replaces state and region of the row with the given id.
func (m *MemoryStore) UpdateGeography(_ context.Context, id int64, geo models.Geography) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Geography = geo
			return nil
		}
	}

	return fmt.Errorf("%w: %w: id %d", ErrStorage, ErrNotFound, id)
}

// ListAll returns every row in id order.
func (m *MemoryStore) ListAll(_ context.Context) ([]models.CaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.CaseRecord, len(m.records))
	copy(out, m.records)

	return out, nil
}

// ListByState returns the rows whose state equals state exactly.
func (m *MemoryStore) ListByState(_ context.Context, state string) ([]models.CaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.CaseRecord{}

	for _, rec := range m.records {
		if rec.State != nil && *rec.State == state {
			out = append(out, rec)
		}
	}

	return out, nil
}

// Len returns the number of rows.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}

func (m *MemoryStore) indexOfKey(title, url string) int {
	for i, rec := range m.records {
		if title != "" && rec.Title == title {
			return i
		}

		if url != "" && rec.URL == url {
			return i
		}
	}

	return -1
}

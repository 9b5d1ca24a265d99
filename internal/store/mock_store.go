package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ajitpratap0/erschema/internal/models"
)

// MockStore is an in-memory implementation of Store for testing.
type MockStore struct {
	mu      sync.RWMutex
	schemas map[string]*storedSchema
}

type storedSchema struct {
	record models.SchemaRecord
	tables []tableRow
	refs   []referenceRow
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		schemas: make(map[string]*storedSchema),
	}
}

// EnsureSchema is a no-op for the mock store.
func (m *MockStore) EnsureSchema(_ context.Context) error {
	return nil
}

// SaveSchema stores a copy of rec.
func (m *MockStore) SaveSchema(_ context.Context, rec models.SchemaRecord, schema *models.Schema) error {
	if rec.ID == "" {
		return fmt.Errorf("save schema: id is required")
	}
	tables, refs := flatten(schema)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[rec.ID] = &storedSchema{record: copyRecord(rec), tables: tables, refs: refs}
	return nil
}

// GetSchema retrieves a single schema by ID.
func (m *MockStore) GetSchema(_ context.Context, id string) (*models.SchemaRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemas[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec := copyRecord(s.record)
	return &rec, nil
}

// ListSchemas returns schemas newest first, ties broken by ID.
func (m *MockStore) ListSchemas(_ context.Context, limit int) ([]models.SchemaRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.SchemaRecord, 0, len(m.schemas))
	for _, s := range m.schemas {
		out = append(out, copyRecord(s.record))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteSchema removes a schema by ID.
func (m *MockStore) DeleteSchema(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.schemas, id)
	return nil
}

// Stats returns statistics computed from the in-memory store.
func (m *MockStore) Stats(_ context.Context) (*models.StoreStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.StoreStats{TotalSchemas: int64(len(m.schemas))}
	for _, s := range m.schemas {
		stats.TotalTables += int64(len(s.tables))
	}
	return stats, nil
}

// Ping always succeeds for the mock store.
func (m *MockStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// copyRecord deep-copies the mutable fields of rec.
func copyRecord(rec models.SchemaRecord) models.SchemaRecord {
	rec.Tables = append([]string(nil), rec.Tables...)
	rec.Payload = append([]byte(nil), rec.Payload...)
	return rec
}

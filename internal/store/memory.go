package store

import (
	"context"
	"sync"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/store/model"
)

// MemoryStore keeps every resource in process memory. Lists are fresh
// non-nil slices.
type MemoryStore struct {
	mu          sync.RWMutex
	datasets    []api.CsvDataset
	tables      map[string]model.Table
	connections []api.PostgresConnection
	checks      []api.ValidationCheck
	results     []api.ValidationResult
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]model.Table)}
}

func (s *MemoryStore) Dataset() Dataset {
	return memoryDatasets{s}
}

func (s *MemoryStore) Connection() Connection {
	return memoryConnections{s}
}

func (s *MemoryStore) Check() Check {
	return memoryChecks{s}
}

func (s *MemoryStore) Result() Result {
	return memoryResults{s}
}

func (s *MemoryStore) Close() error {
	return nil
}

type memoryDatasets struct{ s *MemoryStore }

func (m memoryDatasets) Create(_ context.Context, d api.CsvDataset, content model.Table) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, found := m.s.tables[d.Id]; found {
		return ErrDuplicateKey
	}
	m.s.datasets = append([]api.CsvDataset{d}, m.s.datasets...)
	m.s.tables[d.Id] = content
	return nil
}

func (m memoryDatasets) List(context.Context) ([]api.CsvDataset, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return append(make([]api.CsvDataset, 0, len(m.s.datasets)), m.s.datasets...), nil
}

func (m memoryDatasets) Get(_ context.Context, id string) (api.CsvDataset, model.Table, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, d := range m.s.datasets {
		if d.Id == id {
			return d, m.s.tables[id], nil
		}
	}
	return api.CsvDataset{}, model.Table{}, ErrRecordNotFound
}

type memoryConnections struct{ s *MemoryStore }

func (m memoryConnections) Create(_ context.Context, c api.PostgresConnection) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.connections {
		if existing.Id == c.Id {
			return ErrDuplicateKey
		}
	}
	m.s.connections = append(m.s.connections, c)
	return nil
}

func (m memoryConnections) List(context.Context) ([]api.PostgresConnection, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return append(make([]api.PostgresConnection, 0, len(m.s.connections)), m.s.connections...), nil
}

func (m memoryConnections) Get(_ context.Context, id string) (api.PostgresConnection, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, c := range m.s.connections {
		if c.Id == id {
			return c, nil
		}
	}
	return api.PostgresConnection{}, ErrRecordNotFound
}

type memoryChecks struct{ s *MemoryStore }

func (m memoryChecks) Create(_ context.Context, c api.ValidationCheck) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.checks = append(m.s.checks, c)
	return nil
}

func (m memoryChecks) List(context.Context) ([]api.ValidationCheck, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return append(make([]api.ValidationCheck, 0, len(m.s.checks)), m.s.checks...), nil
}

func (m memoryChecks) Get(_ context.Context, id string) (api.ValidationCheck, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, c := range m.s.checks {
		if c.Id == id {
			return c, nil
		}
	}
	return api.ValidationCheck{}, ErrRecordNotFound
}

type memoryResults struct{ s *MemoryStore }

func (m memoryResults) Create(_ context.Context, r api.ValidationResult) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.results = append(m.s.results, r)
	return nil
}

func (m memoryResults) List(context.Context) ([]api.ValidationResult, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return append(make([]api.ValidationResult, 0, len(m.s.results)), m.s.results...), nil
}

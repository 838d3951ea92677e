package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/RezaEskandarii/jobstatus/internal/store"
	"github.com/RezaEskandarii/jobstatus/types"
)

// MockJobHistoryStore is an in-memory store.JobHistoryStore. Setting an
// Err field makes the matching operation fail.
type MockJobHistoryStore struct {
	mu        sync.Mutex
	records   map[string]types.JobRecord
	UpsertErr error
	GetErr    error
	ListErr   error
	Upserts   int
}

func NewMockJobHistoryStore() *MockJobHistoryStore {
	return &MockJobHistoryStore{records: make(map[string]types.JobRecord)}
}

func (m *MockJobHistoryStore) Upsert(ctx context.Context, record types.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.Upserts++
	m.records[record.JobID] = record
	return nil
}

func (m *MockJobHistoryStore) Get(ctx context.Context, jobID string) (*types.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	record, ok := m.records[jobID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *MockJobHistoryStore) List(ctx context.Context, offset, limit int) (*types.PaginationResult[types.JobRecord], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := []types.JobRecord{}
	for i := offset; i < len(ids) && i < offset+limit; i++ {
		items = append(items, m.records[ids[i]])
	}
	return &types.PaginationResult[types.JobRecord]{
		Items:           items,
		TotalItems:      len(ids),
		PageSize:        limit,
		HasNextPage:     offset+len(items) < len(ids),
		HasPreviousPage: offset > 0,
	}, nil
}

func (m *MockJobHistoryStore) Update(ctx context.Context, record types.JobRecord) (*types.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.JobID]; !ok {
		return nil, nil
	}
	m.records[record.JobID] = record
	return &record, nil
}

func (m *MockJobHistoryStore) Delete(ctx context.Context, jobID string) (*types.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[jobID]
	if !ok {
		return nil, nil
	}
	delete(m.records, jobID)
	return &record, nil
}

func (m *MockJobHistoryStore) Close() error {
	return nil
}

// Len reports how many records are stored.
func (m *MockJobHistoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

var _ store.JobHistoryStore = (*MockJobHistoryStore)(nil)

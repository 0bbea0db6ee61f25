package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/eddiefleurent/options_calculator/internal/models"
)

// MockStorage implements Interface in memory for testing
type MockStorage struct {
	saveError     error
	loadError     error
	records       []models.AnalysisRecord
	saveCallCount int
	loadCallCount int
	mu            sync.Mutex
}

// NewMockStorage creates a new mock storage for testing
func NewMockStorage() *MockStorage {
	return &MockStorage{records: []models.AnalysisRecord{}}
}

// Add implements Interface. It fails with the configured save error, if any.
func (m *MockStorage) Add(rec models.AnalysisRecord) (models.AnalysisRecord, error) {
	if !rec.Kind.Valid() {
		return models.AnalysisRecord{}, fmt.Errorf("invalid analysis kind %q", rec.Kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCallCount++
	if m.saveError != nil {
		return models.AnalysisRecord{}, m.saveError
	}
	rec = prepareRecord(rec, time.Now())
	m.records = append(m.records, rec)
	return rec, nil
}

// Get implements Interface.
func (m *MockStorage) Get(id string) (models.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return models.AnalysisRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
}

// List implements Interface.
func (m *MockStorage) List(limit int) []models.AnalysisRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newestFirst(m.records, limit)
}

// Count implements Interface.
func (m *MockStorage) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Save implements Interface.
func (m *MockStorage) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCallCount++
	return m.saveError
}

// Load implements Interface.
func (m *MockStorage) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCallCount++
	return m.loadError
}

// Test helper methods
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStorage) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadError = err
}

func (m *MockStorage) GetSaveCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCallCount
}

func (m *MockStorage) GetLoadCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCallCount
}

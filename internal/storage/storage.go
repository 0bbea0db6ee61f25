// Package storage persists the analysis history.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/eddiefleurent/options_calculator/internal/models"
	"github.com/google/uuid"
)

// DefaultMaxRecords caps the history when no limit is given.
const DefaultMaxRecords = 500

// JSONStorage keeps analysis records in memory and mirrors them to a JSON file.
type JSONStorage struct {
	data       *Data
	now        func() time.Time
	filepath   string
	maxRecords int
	mu         sync.RWMutex
}

// Data is the on-disk layout.
type Data struct {
	LastUpdated time.Time               `json:"last_updated"`
	Records     []models.AnalysisRecord `json:"records"`
}

// NewJSONStorage opens (or creates on first save) the history file at path.
// Records beyond maxRecords are dropped oldest first; maxRecords <= 0 uses
// DefaultMaxRecords.
func NewJSONStorage(path string, maxRecords int) (*JSONStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	s := &JSONStorage{
		filepath:   path,
		maxRecords: maxRecords,
		now:        time.Now,
		data:       &Data{Records: []models.AnalysisRecord{}},
	}

	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("loading storage: %w", err)
	}

	return s, nil
}

// Load replaces the in-memory history with the file contents. A missing file
// leaves an empty history.
func (s *JSONStorage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filepath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.filepath, err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decoding %s: %w", s.filepath, err)
	}
	if data.Records == nil {
		data.Records = []models.AnalysisRecord{}
	}
	s.data = &data
	s.trimLocked()
	return nil
}

// Save writes the history to disk.
func (s *JSONStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *JSONStorage) saveLocked() error {
	s.data.LastUpdated = s.now().UTC()

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	if dir := filepath.Dir(s.filepath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating storage directory: %w", err)
		}
	}

	// Write to temp file first
	tmpFile := s.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpFile, s.filepath); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Add implements Interface.
func (s *JSONStorage) Add(rec models.AnalysisRecord) (models.AnalysisRecord, error) {
	if !rec.Kind.Valid() {
		return models.AnalysisRecord{}, fmt.Errorf("invalid analysis kind %q", rec.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec = prepareRecord(rec, s.now())
	prev := *s.data
	s.data.Records = append(s.data.Records, rec)
	s.trimLocked()

	if err := s.saveLocked(); err != nil {
		*s.data = prev
		return models.AnalysisRecord{}, err
	}
	return rec, nil
}

// Get implements Interface.
func (s *JSONStorage) Get(id string) (models.AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.data.Records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return models.AnalysisRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
}

// List implements Interface.
func (s *JSONStorage) List(limit int) []models.AnalysisRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.data.Records, limit)
}

// Count implements Interface.
func (s *JSONStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Records)
}

func (s *JSONStorage) trimLocked() {
	if excess := len(s.data.Records) - s.maxRecords; excess > 0 {
		s.data.Records = slices.Clone(s.data.Records[excess:])
	}
}

func prepareRecord(rec models.AnalysisRecord, now time.Time) models.AnalysisRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC()
	}
	rec.Positions = slices.Clone(rec.Positions)
	return rec
}

func newestFirst(records []models.AnalysisRecord, limit int) []models.AnalysisRecord {
	n := len(records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.AnalysisRecord, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, records[i])
	}
	return out
}

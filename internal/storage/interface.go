package storage

import (
	"github.com/eddiefleurent/options_calculator/internal/models"
)

// Interface defines the contract for analysis history persistence.
//
// Implementations must be safe for concurrent use - callers can assume all methods
// are goroutine-safe and can safely call these methods from multiple goroutines.
//
// The provided JSONStorage implementation uses sync.RWMutex to serialize access,
// ensuring all Interface methods are protected for concurrent readers and writers.
type Interface interface {
	// Add assigns an ID and creation time, stores the record and persists it.
	Add(rec models.AnalysisRecord) (models.AnalysisRecord, error)
	// Get returns ErrRecordNotFound for unknown IDs.
	Get(id string) (models.AnalysisRecord, error)
	// List returns up to limit records, newest first; limit <= 0 returns all.
	List(limit int) []models.AnalysisRecord
	Count() int

	// Data persistence
	Save() error
	Load() error
}

// NewStorage creates a new storage implementation (currently JSON-based)
func NewStorage(filepath string, maxRecords int) (Interface, error) {
	return NewJSONStorage(filepath, maxRecords)
}

// Ensure JSONStorage implements Interface
var _ Interface = (*JSONStorage)(nil)

// Ensure MockStorage implements Interface
var _ Interface = (*MockStorage)(nil)

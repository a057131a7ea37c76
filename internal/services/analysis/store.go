package analysis

import (
	"sync"

	"github.com/ternarybob/folio/internal/models"
)

// ResultStore holds the single most recent analysis result. Writes replace
// the snapshot atomically; reads never block on an in-flight run.
type ResultStore struct {
	mu     sync.RWMutex
	latest *models.AnalysisResult
}

// NewResultStore creates an empty result store.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Set replaces the stored result.
func (s *ResultStore) Set(result *models.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = result
}

// Get returns the most recent result, or nil when no run has completed yet.
func (s *ResultStore) Get() *models.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

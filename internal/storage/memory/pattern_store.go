package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

// PatternStore is an in-memory implementation of storage.PatternStore.
type PatternStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Pattern // keyed by pattern_id
	latest time.Time
}

// NewPatternStore creates a new in-memory pattern store.
func NewPatternStore() *PatternStore {
	return &PatternStore{
		data: make(map[string]*domain.Pattern),
	}
}

// SaveRun stores one discovery run. A pattern id seen before is replaced.
// An older runAt than the latest run leaves GetLatest unchanged.
func (s *PatternStore) SaveRun(_ context.Context, runAt time.Time, patterns []*domain.Pattern) error {
	if runAt.IsZero() {
		return storage.ErrInvalidInput
	}
	for _, p := range patterns {
		if p == nil || p.PatternID == "" || !p.DiscoveredAt.Equal(runAt) {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range patterns {
		s.data[p.PatternID] = clonePattern(p)
	}
	if runAt.After(s.latest) {
		s.latest = runAt
	}
	return nil
}

// GetByID retrieves a pattern. Returns ErrNotFound if not exists.
func (s *PatternStore) GetByID(_ context.Context, patternID string) (*domain.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[patternID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return clonePattern(p), nil
}

// GetLatest retrieves the patterns of the most recent discovery run,
// ordered by dimension then segment.
func (s *PatternStore) GetLatest(_ context.Context) ([]*domain.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Pattern
	if s.latest.IsZero() {
		return result, nil
	}
	for _, p := range s.data {
		if p.DiscoveredAt.Equal(s.latest) {
			result = append(result, clonePattern(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Dimension != result[j].Dimension {
			return result[i].Dimension < result[j].Dimension
		}
		return result[i].Segment < result[j].Segment
	})
	return result, nil
}

func clonePattern(p *domain.Pattern) *domain.Pattern {
	c := *p
	c.Evidence = append([]string(nil), p.Evidence...)
	return &c
}

var _ storage.PatternStore = (*PatternStore)(nil)

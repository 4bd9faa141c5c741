package memory

import (
	"context"
	"sort"
	"sync"

	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

// ReportStore is an in-memory implementation of storage.ReportStore.
type ReportStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ReflectionReport // keyed by kind|period_id
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		data: make(map[string]*domain.ReflectionReport),
	}
}

func reportKey(kind domain.PeriodKind, periodID string) string {
	return string(kind) + "|" + periodID
}

// Save inserts or replaces the report for its period.
func (s *ReportStore) Save(_ context.Context, r *domain.ReflectionReport) error {
	if r == nil || r.Period.Kind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *r
	s.data[reportKey(r.Period.Kind, r.Period.ID())] = &c
	return nil
}

// Get retrieves the report for a period. Returns ErrNotFound if not exists.
func (s *ReportStore) Get(_ context.Context, kind domain.PeriodKind, periodID string) (*domain.ReflectionReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[reportKey(kind, periodID)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	c := *r
	return &c, nil
}

// List retrieves reports of one kind, most recent period first.
func (s *ReportStore) List(_ context.Context, kind domain.PeriodKind, limit int) ([]*domain.ReflectionReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReflectionReport
	for _, r := range s.data {
		if r.Period.Kind == kind {
			c := *r
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Period.Start.After(result[j].Period.Start)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.ReportStore = (*ReportStore)(nil)

package memory

import (
	"context"
	"sort"
	"sync"

	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

// AdjustmentStore is an in-memory implementation of storage.AdjustmentStore.
type AdjustmentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StrategyAdjustment // keyed by adjustment_id
}

// NewAdjustmentStore creates a new in-memory adjustment store.
func NewAdjustmentStore() *AdjustmentStore {
	return &AdjustmentStore{
		data: make(map[string]*domain.StrategyAdjustment),
	}
}

// Insert adds a new adjustment. Returns ErrDuplicateKey if adjustment_id exists.
func (s *AdjustmentStore) Insert(_ context.Context, a *domain.StrategyAdjustment) error {
	if a == nil || a.AdjustmentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.AdjustmentID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[a.AdjustmentID] = cloneAdjustment(a)
	return nil
}

// InsertBulk adds multiple adjustments atomically. Fails entire batch on any duplicate.
func (s *AdjustmentStore) InsertBulk(_ context.Context, adjustments []*domain.StrategyAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(adjustments))
	for _, a := range adjustments {
		if a == nil || a.AdjustmentID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[a.AdjustmentID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[a.AdjustmentID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[a.AdjustmentID] = struct{}{}
	}

	for _, a := range adjustments {
		s.data[a.AdjustmentID] = cloneAdjustment(a)
	}
	return nil
}

// GetByID retrieves an adjustment. Returns ErrNotFound if not exists.
func (s *AdjustmentStore) GetByID(_ context.Context, adjustmentID string) (*domain.StrategyAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[adjustmentID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneAdjustment(a), nil
}

// Query retrieves adjustments matching the filter, newest first.
func (s *AdjustmentStore) Query(_ context.Context, f storage.AdjustmentFilter) ([]*domain.StrategyAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StrategyAdjustment
	for _, a := range s.data {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		result = append(result, cloneAdjustment(a))
	}
	sortNewestFirst(result)

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

// ListUnresolved retrieves proposed and approved adjustments.
func (s *AdjustmentStore) ListUnresolved(_ context.Context) ([]*domain.StrategyAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StrategyAdjustment
	for _, a := range s.data {
		if a.Status.Unresolved() {
			result = append(result, cloneAdjustment(a))
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// UpdateStatus persists a.Status and a.StatusChangedAt if the stored status equals from.
func (s *AdjustmentStore) UpdateStatus(_ context.Context, a *domain.StrategyAdjustment, from domain.AdjustmentStatus) error {
	if a == nil || a.AdjustmentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.data[a.AdjustmentID]
	if !exists {
		return storage.ErrNotFound
	}
	if stored.Status != from {
		return storage.ErrConflict
	}
	stored.Status = a.Status
	stored.StatusChangedAt = a.StatusChangedAt
	return nil
}

func sortNewestFirst(result []*domain.StrategyAdjustment) {
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].AdjustmentID < result[j].AdjustmentID
	})
}

func cloneAdjustment(a *domain.StrategyAdjustment) *domain.StrategyAdjustment {
	c := *a
	c.Evidence = append([]string(nil), a.Evidence...)
	return &c
}

var _ storage.AdjustmentStore = (*AdjustmentStore)(nil)

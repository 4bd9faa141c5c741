package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

func newAdjustment(id string, typ domain.AdjustmentType, status domain.AdjustmentStatus, created time.Time) *domain.StrategyAdjustment {
	return &domain.StrategyAdjustment{
		AdjustmentID:    id,
		Type:            typ,
		TargetKind:      domain.TargetSession,
		Target:          "asian",
		Parameter:       "max_lot_size",
		OldValue:        "0.10",
		NewValue:        "0.05",
		Justification:   "asian win rate 0.20 over 5 trades",
		SourcePatternID: "p1",
		Evidence:        []string{"T-1", "T-2"},
		Status:          status,
		CreatedAt:       created,
		StatusChangedAt: created,
	}
}

func TestAdjustmentStore_InsertAndQuery(t *testing.T) {
	store := NewAdjustmentStore()
	ctx := context.Background()

	adjs := []*domain.StrategyAdjustment{
		newAdjustment("a1", domain.AdjustmentSessionReduce, domain.StatusProposed, t0),
		newAdjustment("a2", domain.AdjustmentStrategyPrefer, domain.StatusApplied, t0.Add(time.Hour)),
		newAdjustment("a3", domain.AdjustmentSessionReduce, domain.StatusApproved, t0.Add(2*time.Hour)),
	}
	if err := store.InsertBulk(ctx, adjs); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.Query(ctx, storage.AdjustmentFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(all) != 3 || all[0].AdjustmentID != "a3" {
		t.Errorf("expected newest first, got %d results starting %s", len(all), all[0].AdjustmentID)
	}

	reduce, _ := store.Query(ctx, storage.AdjustmentFilter{Type: domain.AdjustmentSessionReduce})
	if len(reduce) != 2 {
		t.Errorf("type filter returned %d, want 2", len(reduce))
	}

	applied, _ := store.Query(ctx, storage.AdjustmentFilter{Status: domain.StatusApplied})
	if len(applied) != 1 || applied[0].AdjustmentID != "a2" {
		t.Errorf("status filter returned %v", applied)
	}

	unresolved, _ := store.ListUnresolved(ctx)
	if len(unresolved) != 2 {
		t.Errorf("ListUnresolved returned %d, want 2", len(unresolved))
	}
}

func TestAdjustmentStore_Duplicate(t *testing.T) {
	store := NewAdjustmentStore()
	ctx := context.Background()

	a := newAdjustment("a1", domain.AdjustmentSessionReduce, domain.StatusProposed, t0)
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, a); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestAdjustmentStore_UpdateStatusCompareAndSet(t *testing.T) {
	store := NewAdjustmentStore()
	ctx := context.Background()

	a := newAdjustment("a1", domain.AdjustmentSessionReduce, domain.StatusProposed, t0)
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	approved := *a
	approved.Status = domain.StatusApproved
	approved.StatusChangedAt = t0.Add(time.Hour)
	if err := store.UpdateStatus(ctx, &approved, domain.StatusProposed); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "a1")
	if got.Status != domain.StatusApproved || !got.StatusChangedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("status not persisted: %+v", got)
	}

	// A second writer still believing the adjustment is proposed must lose.
	rejected := *a
	rejected.Status = domain.StatusRejected
	if err := store.UpdateStatus(ctx, &rejected, domain.StatusProposed); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}

	missing := *a
	missing.AdjustmentID = "nope"
	if err := store.UpdateStatus(ctx, &missing, domain.StatusProposed); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

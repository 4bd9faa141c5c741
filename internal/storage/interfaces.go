package storage

import (
	"context"
	"time"

	"trade-memory/internal/domain"
)

// TradeFilter selects trades. Zero values leave a field unconstrained.
type TradeFilter struct {
	Start    time.Time // inclusive
	End      time.Time // exclusive
	Strategy string
	Symbol   string
	AgentID  string
	Limit    int
}

// Matches reports whether t satisfies the filter (Limit is not considered).
func (f TradeFilter) Matches(t *domain.TradeRecord) bool {
	if !f.Start.IsZero() && t.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && !t.Timestamp.Before(f.End) {
		return false
	}
	if f.Strategy != "" && t.Strategy != f.Strategy {
		return false
	}
	if f.Symbol != "" && t.Symbol != f.Symbol {
		return false
	}
	if f.AgentID != "" && t.AgentID != f.AgentID {
		return false
	}
	return true
}

// TradeRecordStore provides access to the trade journal (cold memory).
type TradeRecordStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// Query retrieves trades matching the filter, ordered by timestamp ASC, trade_id ASC.
	Query(ctx context.Context, f TradeFilter) ([]*domain.TradeRecord, error)
}

// AdjustmentFilter selects adjustments. Empty fields are unconstrained.
type AdjustmentFilter struct {
	Status domain.AdjustmentStatus
	Type   domain.AdjustmentType
	Limit  int
}

// AdjustmentStore persists strategy adjustments.
type AdjustmentStore interface {
	// Insert adds a new adjustment. Returns ErrDuplicateKey if adjustment_id exists.
	Insert(ctx context.Context, a *domain.StrategyAdjustment) error

	// InsertBulk adds multiple adjustments atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, adjustments []*domain.StrategyAdjustment) error

	// GetByID retrieves an adjustment. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, adjustmentID string) (*domain.StrategyAdjustment, error)

	// Query retrieves adjustments matching the filter, newest first.
	Query(ctx context.Context, f AdjustmentFilter) ([]*domain.StrategyAdjustment, error)

	// ListUnresolved retrieves proposed and approved adjustments.
	ListUnresolved(ctx context.Context) ([]*domain.StrategyAdjustment, error)

	// UpdateStatus persists a.Status and a.StatusChangedAt only if the stored
	// status still equals from. Returns ErrNotFound or ErrConflict.
	UpdateStatus(ctx context.Context, a *domain.StrategyAdjustment, from domain.AdjustmentStatus) error
}

// ReportStore persists reflection reports, one per period.
type ReportStore interface {
	// Save inserts or replaces the report for its period.
	Save(ctx context.Context, r *domain.ReflectionReport) error

	// Get retrieves the report for a period. Returns ErrNotFound if not exists.
	Get(ctx context.Context, kind domain.PeriodKind, periodID string) (*domain.ReflectionReport, error)

	// List retrieves reports of one kind, most recent period first.
	List(ctx context.Context, kind domain.PeriodKind, limit int) ([]*domain.ReflectionReport, error)
}

// PatternStore persists discovered patterns (warm memory).
type PatternStore interface {
	// SaveRun stores one discovery run taken at runAt. Every pattern must
	// carry DiscoveredAt == runAt. A run with no patterns is still recorded,
	// so it supersedes the run before it.
	SaveRun(ctx context.Context, runAt time.Time, patterns []*domain.Pattern) error

	// GetByID retrieves a pattern. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, patternID string) (*domain.Pattern, error)

	// GetLatest retrieves the patterns of the most recent discovery run.
	// It is empty when that run found nothing.
	GetLatest(ctx context.Context) ([]*domain.Pattern, error)
}

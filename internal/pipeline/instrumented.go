package pipeline

import (
	"context"
	"errors"
	"time"

	"trade-memory/internal/domain"
	"trade-memory/internal/observability"
	"trade-memory/internal/storage"
)

// Instrument wraps every store so each call records its duration and
// failures. A missing record is not counted as a failure. A nil m returns
// stores unchanged.
func Instrument(stores Stores, m *observability.Metrics) Stores {
	if m == nil {
		return stores
	}
	return Stores{
		Trades:      &instrumentedTrades{next: stores.Trades, m: m},
		Patterns:    &instrumentedPatterns{next: stores.Patterns, m: m},
		Adjustments: &instrumentedAdjustments{next: stores.Adjustments, m: m},
		Reports:     &instrumentedReports{next: stores.Reports, m: m},
	}
}

func record(m *observability.Metrics, store, op string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	m.RecordDBQuery(store, op, start, err)
}

type instrumentedTrades struct {
	next storage.TradeRecordStore
	m    *observability.Metrics
}

func (s *instrumentedTrades) Insert(ctx context.Context, t *domain.TradeRecord) (err error) {
	defer func(start time.Time) { record(s.m, "trades", "insert", start, err) }(time.Now())
	return s.next.Insert(ctx, t)
}

func (s *instrumentedTrades) InsertBulk(ctx context.Context, trades []*domain.TradeRecord) (err error) {
	defer func(start time.Time) { record(s.m, "trades", "insert_bulk", start, err) }(time.Now())
	return s.next.InsertBulk(ctx, trades)
}

func (s *instrumentedTrades) GetByID(ctx context.Context, tradeID string) (t *domain.TradeRecord, err error) {
	defer func(start time.Time) { record(s.m, "trades", "get", start, err) }(time.Now())
	return s.next.GetByID(ctx, tradeID)
}

func (s *instrumentedTrades) Query(ctx context.Context, f storage.TradeFilter) (ts []*domain.TradeRecord, err error) {
	defer func(start time.Time) { record(s.m, "trades", "query", start, err) }(time.Now())
	return s.next.Query(ctx, f)
}

type instrumentedPatterns struct {
	next storage.PatternStore
	m    *observability.Metrics
}

func (s *instrumentedPatterns) SaveRun(ctx context.Context, runAt time.Time, patterns []*domain.Pattern) (err error) {
	defer func(start time.Time) { record(s.m, "patterns", "save_run", start, err) }(time.Now())
	return s.next.SaveRun(ctx, runAt, patterns)
}

func (s *instrumentedPatterns) GetByID(ctx context.Context, patternID string) (p *domain.Pattern, err error) {
	defer func(start time.Time) { record(s.m, "patterns", "get", start, err) }(time.Now())
	return s.next.GetByID(ctx, patternID)
}

func (s *instrumentedPatterns) GetLatest(ctx context.Context) (ps []*domain.Pattern, err error) {
	defer func(start time.Time) { record(s.m, "patterns", "get_latest", start, err) }(time.Now())
	return s.next.GetLatest(ctx)
}

type instrumentedAdjustments struct {
	next storage.AdjustmentStore
	m    *observability.Metrics
}

func (s *instrumentedAdjustments) Insert(ctx context.Context, a *domain.StrategyAdjustment) (err error) {
	defer func(start time.Time) { record(s.m, "adjustments", "insert", start, err) }(time.Now())
	return s.next.Insert(ctx, a)
}

func (s *instrumentedAdjustments) InsertBulk(ctx context.Context, adjustments []*domain.StrategyAdjustment) (err error) {
	defer func(start time.Time) { record(s.m, "adjustments", "insert_bulk", start, err) }(time.Now())
	return s.next.InsertBulk(ctx, adjustments)
}

func (s *instrumentedAdjustments) GetByID(ctx context.Context, adjustmentID string) (a *domain.StrategyAdjustment, err error) {
	defer func(start time.Time) { record(s.m, "adjustments", "get", start, err) }(time.Now())
	return s.next.GetByID(ctx, adjustmentID)
}

func (s *instrumentedAdjustments) Query(ctx context.Context, f storage.AdjustmentFilter) (as []*domain.StrategyAdjustment, err error) {
	defer func(start time.Time) { record(s.m, "adjustments", "query", start, err) }(time.Now())
	return s.next.Query(ctx, f)
}

func (s *instrumentedAdjustments) ListUnresolved(ctx context.Context) (as []*domain.StrategyAdjustment, err error) {
	defer func(start time.Time) { record(s.m, "adjustments", "list_unresolved", start, err) }(time.Now())
	return s.next.ListUnresolved(ctx)
}

func (s *instrumentedAdjustments) UpdateStatus(ctx context.Context, a *domain.StrategyAdjustment, from domain.AdjustmentStatus) (err error) {
	defer func(start time.Time) { record(s.m, "adjustments", "update_status", start, err) }(time.Now())
	return s.next.UpdateStatus(ctx, a, from)
}

type instrumentedReports struct {
	next storage.ReportStore
	m    *observability.Metrics
}

func (s *instrumentedReports) Save(ctx context.Context, r *domain.ReflectionReport) (err error) {
	defer func(start time.Time) { record(s.m, "reports", "save", start, err) }(time.Now())
	return s.next.Save(ctx, r)
}

func (s *instrumentedReports) Get(ctx context.Context, kind domain.PeriodKind, periodID string) (r *domain.ReflectionReport, err error) {
	defer func(start time.Time) { record(s.m, "reports", "get", start, err) }(time.Now())
	return s.next.Get(ctx, kind, periodID)
}

func (s *instrumentedReports) List(ctx context.Context, kind domain.PeriodKind, limit int) (rs []*domain.ReflectionReport, err error) {
	defer func(start time.Time) { record(s.m, "reports", "list", start, err) }(time.Now())
	return s.next.List(ctx, kind, limit)
}

var (
	_ storage.TradeRecordStore = (*instrumentedTrades)(nil)
	_ storage.PatternStore     = (*instrumentedPatterns)(nil)
	_ storage.AdjustmentStore  = (*instrumentedAdjustments)(nil)
	_ storage.ReportStore      = (*instrumentedReports)(nil)
)

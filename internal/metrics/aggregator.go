package metrics

import (
	"context"
	"fmt"
	"sort"

	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

// PeriodSummary is everything the reporting layer needs about one period.
type PeriodSummary struct {
	Period   domain.Period
	Trades   []*domain.TradeRecord
	Overall  domain.PerformanceMetrics
	Segments map[domain.Dimension]map[string]domain.PerformanceMetrics
	Stats    PeriodStats
	Config   Config
}

// Aggregator loads trades from the journal and summarizes them.
type Aggregator struct {
	tradeRecordStore storage.TradeRecordStore
	cfg              Config
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(tradeStore storage.TradeRecordStore, cfg Config) *Aggregator {
	return &Aggregator{
		tradeRecordStore: tradeStore,
		cfg:              cfg,
	}
}

// Config returns the aggregation thresholds.
func (a *Aggregator) Config() Config {
	return a.cfg
}

// LoadPeriod returns all trades entered during the period.
func (a *Aggregator) LoadPeriod(ctx context.Context, p domain.Period) ([]*domain.TradeRecord, error) {
	trades, err := a.tradeRecordStore.Query(ctx, storage.TradeFilter{Start: p.Start, End: p.End})
	if err != nil {
		return nil, fmt.Errorf("load trades for %s: %w", p.ID(), err)
	}
	return trades, nil
}

// SummarizePeriod loads the period and computes overall, segmented and extended stats.
func (a *Aggregator) SummarizePeriod(ctx context.Context, p domain.Period) (*PeriodSummary, error) {
	trades, err := a.LoadPeriod(ctx, p)
	if err != nil {
		return nil, err
	}
	return Summarize(p, trades, a.cfg), nil
}

// Summarize computes a PeriodSummary over already loaded trades.
func Summarize(p domain.Period, trades []*domain.TradeRecord, cfg Config) *PeriodSummary {
	s := &PeriodSummary{
		Period:   p,
		Trades:   trades,
		Overall:  ComputeMetrics(trades, cfg),
		Segments: make(map[domain.Dimension]map[string]domain.PerformanceMetrics),
		Stats:    ComputePeriodStats(trades, cfg),
		Config:   cfg,
	}
	for _, dim := range []domain.Dimension{domain.DimensionSession, domain.DimensionStrategy, domain.DimensionConfidenceBand} {
		s.Segments[dim] = ComputeSegmentedMetrics(trades, dim, cfg)
	}
	return s
}

// SortedSegments returns the segment keys of m in lexical order.
func SortedSegments(m map[string]domain.PerformanceMetrics) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

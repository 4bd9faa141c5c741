package patterns

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-memory/internal/domain"
)

var fixedNow = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func trade(id, session, strategy string, dir domain.Direction, pnl float64) *domain.TradeRecord {
	entry := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	exit := entry.Add(time.Hour)
	return &domain.TradeRecord{
		TradeID:    id,
		Timestamp:  entry,
		Symbol:     "XAUUSD",
		Direction:  dir,
		Strategy:   strategy,
		Confidence: 0.7,
		Market:     domain.MarketContext{Session: session},
		ExitTime:   &exit,
		PnL:        &pnl,
	}
}

func series(prefix, session, strategy string, dir domain.Direction, pnls ...float64) []*domain.TradeRecord {
	out := make([]*domain.TradeRecord, len(pnls))
	for i, p := range pnls {
		out[i] = trade(fmt.Sprintf("%s-%d", prefix, i+1), session, strategy, dir, p)
	}
	return out
}

func newTestDiscoverer() *Discoverer {
	return NewDiscoverer(DefaultConfig()).WithClock(func() time.Time { return fixedNow })
}

func TestDiscover_ScenarioWeakAsianSession(t *testing.T) {
	trades := series("A", "asian", "Pullback", domain.DirectionLong, 20, -10, -10, -10, -10)

	got := newTestDiscoverer().Discover(trades, []domain.Dimension{domain.DimensionSession})

	require.Len(t, got, 1)
	p := got[0]
	assert.Equal(t, domain.DimensionSession, p.Dimension)
	assert.Equal(t, "asian", p.Segment)
	assert.Equal(t, "session:asian", p.Key())
	assert.Equal(t, domain.EdgeWeak, p.Edge)
	assert.InDelta(t, 0.20, p.WinRate, 1e-9)
	assert.Equal(t, 5, p.SampleSize)
	assert.Equal(t, []string{"A-1", "A-2", "A-3", "A-4", "A-5"}, p.Evidence)
	assert.Equal(t, fixedNow, p.DiscoveredAt)
	assert.Len(t, p.PatternID, 64)
	// min(1, 5/20) * |0.2-0.5| * 2
	assert.InDelta(t, 0.15, p.Confidence, 1e-9)
}

func TestDiscover_HighEdgeRequiresPositiveNet(t *testing.T) {
	// 4 of 5 winners but net negative: not HIGH_EDGE.
	trades := series("B", "london", "Scalp", domain.DirectionLong, 1, 1, 1, 1, -100)

	got := newTestDiscoverer().Discover(trades, []domain.Dimension{domain.DimensionStrategy})

	require.Len(t, got, 1)
	assert.InDelta(t, 0.8, got[0].WinRate, 1e-9)
	assert.Equal(t, domain.EdgeNeutral, got[0].Edge)
}

func TestDiscover_HighEdge(t *testing.T) {
	trades := series("C", "newyork", "VolBreakout", domain.DirectionLong, 30, 25, 40, 35, 20, -15)

	got := newTestDiscoverer().Discover(trades, []domain.Dimension{domain.DimensionStrategy})

	require.Len(t, got, 1)
	assert.Equal(t, domain.EdgeHigh, got[0].Edge)
	assert.InDelta(t, 5.0/6.0, got[0].WinRate, 1e-9)
	assert.Equal(t, 6, got[0].SampleSize)
}

func TestDiscover_MinEvidence(t *testing.T) {
	trades := append(
		series("D", "asian", "A", domain.DirectionLong, -1, -1, -1),
		series("E", "london", "A", domain.DirectionLong, 1, 1, 1, 1)...,
	)

	got := newTestDiscoverer().Discover(trades, []domain.Dimension{domain.DimensionSession})

	require.Len(t, got, 1)
	assert.Equal(t, "london", got[0].Segment)
	for _, p := range got {
		assert.GreaterOrEqual(t, len(p.Evidence), DefaultConfig().MinEvidence)
	}
}

func TestDiscover_OpenTradesIgnored(t *testing.T) {
	trades := series("F", "asian", "A", domain.DirectionLong, 1, 1, 1)
	open := trade("F-open", "asian", "A", domain.DirectionLong, 0)
	open.PnL = nil
	open.ExitTime = nil
	trades = append(trades, open)

	got := newTestDiscoverer().Discover(trades, []domain.Dimension{domain.DimensionSession})
	assert.Empty(t, got, "open trades must not count as evidence")
}

func TestDiscover_AllBreakevenSkipped(t *testing.T) {
	trades := series("G", "asian", "A", domain.DirectionLong, 0, 0, 0, 0)
	got := newTestDiscoverer().Discover(trades, []domain.Dimension{domain.DimensionSession})
	assert.Empty(t, got)
}

func TestDiscover_Empty(t *testing.T) {
	got := newTestDiscoverer().Discover(nil, nil)
	assert.Empty(t, got)
}

func TestDiscover_DeterministicOrder(t *testing.T) {
	var trades []*domain.TradeRecord
	trades = append(trades, series("H", "london", "B", domain.DirectionShort, 1, -1, 1, -1)...)
	trades = append(trades, series("I", "asian", "A", domain.DirectionLong, 1, 1, 1, -1)...)

	dims := []domain.Dimension{domain.DimensionStrategy, domain.DimensionSession, domain.DimensionStrategy}
	first := newTestDiscoverer().Discover(trades, dims)
	second := newTestDiscoverer().Discover(trades, dims)

	require.Equal(t, first, second)
	require.Len(t, first, 4, "duplicate dimensions are evaluated once")
	assert.Equal(t, "strategy:A", first[0].Key())
	assert.Equal(t, "strategy:B", first[1].Key())
	assert.Equal(t, "session:asian", first[2].Key())
	assert.Equal(t, "session:london", first[3].Key())
}

func TestDiscover_StrategyDirection(t *testing.T) {
	var trades []*domain.TradeRecord
	trades = append(trades, series("L", "london", "VolBreakout", domain.DirectionLong, 10, 10, -5, 10)...)
	trades = append(trades, series("S", "london", "VolBreakout", domain.DirectionShort, -5, -5, -5, 10)...)

	got := newTestDiscoverer().Discover(trades, []domain.Dimension{domain.DimensionStrategyDirection})

	require.Len(t, got, 2)
	assert.Equal(t, "VolBreakout/long", got[0].Segment)
	assert.Equal(t, domain.EdgeHigh, got[0].Edge)
	assert.Equal(t, "VolBreakout/short", got[1].Segment)
	assert.Equal(t, domain.EdgeWeak, got[1].Edge)
}

func TestClassifyBoundaries(t *testing.T) {
	d := newTestDiscoverer()

	assert.Equal(t, domain.EdgeHigh, d.Classify(0.65, 1))
	assert.Equal(t, domain.EdgeNeutral, d.Classify(0.6499, 1))
	assert.Equal(t, domain.EdgeNeutral, d.Classify(0.65, 0))
	assert.Equal(t, domain.EdgeWeak, d.Classify(0.35, 10))
	assert.Equal(t, domain.EdgeNeutral, d.Classify(0.3501, -10))

	cfg := DefaultConfig()
	cfg.WeakWinRate = 0.40
	assert.Equal(t, domain.EdgeWeak, NewDiscoverer(cfg).Classify(0.38, 5))
}

func TestConfidenceMonotonic(t *testing.T) {
	d := newTestDiscoverer()

	assert.InDelta(t, 0.0, d.Confidence(50, 0.5), 1e-9)
	assert.InDelta(t, 1.0, d.Confidence(40, 1.0), 1e-9)
	assert.Less(t, d.Confidence(5, 0.2), d.Confidence(10, 0.2))
	assert.Less(t, d.Confidence(10, 0.4), d.Confidence(10, 0.2))
}

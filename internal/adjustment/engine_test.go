package adjustment

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-memory/internal/domain"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	n := 0
	return NewEngine(DefaultConfig()).
		WithClock(func() time.Time { return fixedNow }).
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("adj-%d", n)
		})
}

func pattern(dim domain.Dimension, segment string, edge domain.EdgeClass, winRate float64, n int) domain.Pattern {
	evidence := make([]string, n)
	for i := range evidence {
		evidence[i] = fmt.Sprintf("T-%d", i+1)
	}
	net := 100.0
	if edge == domain.EdgeWeak {
		net = -100
	}
	return domain.Pattern{
		PatternID:  "pat-" + segment,
		Dimension:  dim,
		Segment:    segment,
		SampleSize: n,
		WinRate:    winRate,
		NetPnL:     net,
		Edge:       edge,
		Confidence: 0.4,
		Evidence:   evidence,
	}
}

func TestGenerate_SessionReduce(t *testing.T) {
	p := pattern(domain.DimensionSession, "asian", domain.EdgeWeak, 0.2, 5)

	got := newTestEngine().Generate([]domain.Pattern{p}, nil, RiskLimits{
		SessionMaxSize: map[string]float64{"asian": 0.10},
	})

	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, domain.AdjustmentSessionReduce, a.Type)
	assert.Equal(t, domain.TargetSession, a.TargetKind)
	assert.Equal(t, "asian", a.Target)
	assert.Equal(t, ParamMaxLotSize, a.Parameter)
	assert.Equal(t, "0.1", a.OldValue)
	assert.Equal(t, "0.05", a.NewValue)
	assert.Equal(t, domain.StatusProposed, a.Status)
	assert.Equal(t, "adj-1", a.AdjustmentID)
	assert.Equal(t, fixedNow, a.CreatedAt)
	assert.Equal(t, "pat-asian", a.SourcePatternID)
	assert.Len(t, a.Evidence, 5)
}

func TestGenerate_StrategyPrefer(t *testing.T) {
	p := pattern(domain.DimensionStrategy, "VolBreakout", domain.EdgeHigh, 5.0/6.0, 6)

	got := newTestEngine().Generate([]domain.Pattern{p}, nil, RiskLimits{})

	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, domain.AdjustmentStrategyPrefer, a.Type)
	assert.Equal(t, "0.1", a.OldValue)
	assert.Equal(t, "0.15", a.NewValue)
	assert.Contains(t, a.Justification, "0.83")
	assert.Contains(t, a.Justification, "6")
}

func TestGenerate_PreferCapped(t *testing.T) {
	p := pattern(domain.DimensionStrategy, "VolBreakout", domain.EdgeHigh, 0.9, 10)

	got := newTestEngine().Generate([]domain.Pattern{p}, nil, RiskLimits{
		StrategyMaxSize: map[string]float64{"VolBreakout": 0.8},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].NewValue)

	atCap := newTestEngine().Generate([]domain.Pattern{p}, nil, RiskLimits{
		StrategyMaxSize: map[string]float64{"VolBreakout": 1.0},
	})
	assert.Empty(t, atCap, "no proposal when the value would not change")
}

func TestGenerate_SessionIncrease(t *testing.T) {
	p := pattern(domain.DimensionSession, "london", domain.EdgeHigh, 0.7, 8)

	got := newTestEngine().Generate([]domain.Pattern{p}, nil, RiskLimits{
		SessionMaxSize: map[string]float64{"london": 0.2},
	})

	require.Len(t, got, 1)
	assert.Equal(t, domain.AdjustmentSessionIncrease, got[0].Type)
	assert.Equal(t, "0.2", got[0].OldValue)
	assert.Equal(t, "0.3", got[0].NewValue)
}

func TestGenerate_StrategyDisable(t *testing.T) {
	weak := pattern(domain.DimensionStrategy, "Pullback", domain.EdgeWeak, 0.25, 8)
	borderline := pattern(domain.DimensionStrategy, "Fade", domain.EdgeWeak, 0.33, 6)

	got := newTestEngine().Generate([]domain.Pattern{weak, borderline}, nil, RiskLimits{})

	require.Len(t, got, 1, "WEAK above the disable threshold proposes nothing")
	a := got[0]
	assert.Equal(t, domain.AdjustmentStrategyDisable, a.Type)
	assert.Equal(t, "Pullback", a.Target)
	assert.Equal(t, ParamEnabled, a.Parameter)
	assert.Equal(t, "true", a.OldValue)
	assert.Equal(t, "false", a.NewValue)
}

func TestGenerate_DirectionRestrict(t *testing.T) {
	patterns := []domain.Pattern{
		pattern(domain.DimensionStrategyDirection, "VolBreakout/long", domain.EdgeHigh, 0.75, 4),
		pattern(domain.DimensionStrategyDirection, "VolBreakout/short", domain.EdgeWeak, 0.25, 4),
	}

	got := newTestEngine().Generate(patterns, nil, RiskLimits{})

	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, domain.AdjustmentDirectionRestrict, a.Type)
	assert.Equal(t, domain.TargetStrategy, a.TargetKind)
	assert.Equal(t, "VolBreakout", a.Target)
	assert.Equal(t, "long,short", a.OldValue)
	assert.Equal(t, "long", a.NewValue)
}

func TestGenerate_DirectionRestrictNeedsStrongOpposite(t *testing.T) {
	bothWeak := []domain.Pattern{
		pattern(domain.DimensionStrategyDirection, "X/long", domain.EdgeWeak, 0.25, 4),
		pattern(domain.DimensionStrategyDirection, "X/short", domain.EdgeWeak, 0.25, 4),
	}
	assert.Empty(t, newTestEngine().Generate(bothWeak, nil, RiskLimits{}))

	missing := []domain.Pattern{
		pattern(domain.DimensionStrategyDirection, "X/short", domain.EdgeWeak, 0.25, 4),
	}
	assert.Empty(t, newTestEngine().Generate(missing, nil, RiskLimits{}))
}

func TestGenerate_Precedence(t *testing.T) {
	patterns := []domain.Pattern{
		pattern(domain.DimensionStrategy, "VolBreakout", domain.EdgeHigh, 0.7, 8),
		pattern(domain.DimensionStrategyDirection, "VolBreakout/long", domain.EdgeHigh, 0.9, 4),
		pattern(domain.DimensionStrategyDirection, "VolBreakout/short", domain.EdgeWeak, 0.25, 4),
	}

	got := newTestEngine().Generate(patterns, nil, RiskLimits{})

	require.Len(t, got, 1, "one proposal per target")
	assert.Equal(t, domain.AdjustmentDirectionRestrict, got[0].Type)
}

func TestGenerate_SkipsUnresolvedTargets(t *testing.T) {
	p := pattern(domain.DimensionSession, "asian", domain.EdgeWeak, 0.2, 5)

	for _, status := range []domain.AdjustmentStatus{domain.StatusProposed, domain.StatusApproved} {
		existing := &domain.StrategyAdjustment{
			AdjustmentID: "old",
			TargetKind:   domain.TargetSession,
			Target:       "asian",
			Status:       status,
		}
		got := newTestEngine().Generate([]domain.Pattern{p}, []*domain.StrategyAdjustment{existing}, RiskLimits{})
		assert.Empty(t, got, "status %s blocks the target", status)
	}

	done := &domain.StrategyAdjustment{
		AdjustmentID: "old",
		TargetKind:   domain.TargetSession,
		Target:       "asian",
		Status:       domain.StatusApplied,
	}
	got := newTestEngine().Generate([]domain.Pattern{p}, []*domain.StrategyAdjustment{done}, RiskLimits{})
	assert.Len(t, got, 1, "resolved adjustments do not block")

	// Same name, different kind.
	strategy := &domain.StrategyAdjustment{
		TargetKind: domain.TargetStrategy,
		Target:     "asian",
		Status:     domain.StatusProposed,
	}
	got = newTestEngine().Generate([]domain.Pattern{p}, []*domain.StrategyAdjustment{strategy}, RiskLimits{})
	assert.Len(t, got, 1)
}

func TestGenerate_IgnoresThinAndNeutralPatterns(t *testing.T) {
	patterns := []domain.Pattern{
		pattern(domain.DimensionSession, "asian", domain.EdgeWeak, 0.2, 3),
		pattern(domain.DimensionSession, "london", domain.EdgeNeutral, 0.5, 10),
		pattern(domain.DimensionConfidenceBand, "high", domain.EdgeHigh, 0.8, 10),
	}
	assert.Empty(t, newTestEngine().Generate(patterns, nil, RiskLimits{}))
}

func TestGenerate_SkipsUnknownSegment(t *testing.T) {
	patterns := []domain.Pattern{
		pattern(domain.DimensionSession, domain.SegmentUnknown, domain.EdgeWeak, 0.2, 6),
		pattern(domain.DimensionStrategy, domain.SegmentUnknown, domain.EdgeWeak, 0.1, 6),
		pattern(domain.DimensionStrategy, domain.SegmentUnknown, domain.EdgeHigh, 0.9, 6),
		pattern(domain.DimensionStrategyDirection, domain.SegmentUnknown, domain.EdgeWeak, 0.1, 6),
		pattern(domain.DimensionSession, "asian", domain.EdgeWeak, 0.2, 6),
	}

	got := newTestEngine().Generate(patterns, nil, RiskLimits{})

	require.Len(t, got, 1)
	assert.Equal(t, "session:asian", got[0].TargetKey())
}

func TestGenerate_DeterministicOrder(t *testing.T) {
	patterns := []domain.Pattern{
		pattern(domain.DimensionStrategy, "Zeta", domain.EdgeHigh, 0.8, 5),
		pattern(domain.DimensionSession, "london", domain.EdgeWeak, 0.2, 5),
		pattern(domain.DimensionStrategy, "Alpha", domain.EdgeWeak, 0.1, 5),
		pattern(domain.DimensionSession, "asian", domain.EdgeHigh, 0.8, 5),
	}

	got := newTestEngine().Generate(patterns, nil, RiskLimits{})

	require.Len(t, got, 4)
	keys := make([]string, len(got))
	for i, a := range got {
		keys[i] = a.TargetKey()
	}
	assert.Equal(t, []string{"session:asian", "session:london", "strategy:Alpha", "strategy:Zeta"}, keys)
}

func TestGenerate_DoesNotAliasPatternEvidence(t *testing.T) {
	p := pattern(domain.DimensionSession, "asian", domain.EdgeWeak, 0.2, 5)
	got := newTestEngine().Generate([]domain.Pattern{p}, nil, RiskLimits{})
	require.Len(t, got, 1)

	got[0].Evidence[0] = "mutated"
	assert.Equal(t, "T-1", p.Evidence[0])
}

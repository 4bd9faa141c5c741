// Package patterns classifies per-segment edge over a trade window.
package patterns

import (
	"math"
	"sort"
	"time"

	"trade-memory/internal/domain"
	"trade-memory/internal/idhash"
	"trade-memory/internal/metrics"
)

// Config holds classification thresholds.
type Config struct {
	MinEvidence     int     `yaml:"min_evidence"`      // closed trades required per segment
	HighEdgeWinRate float64 `yaml:"high_edge_win_rate"` // HIGH_EDGE at or above, with positive net P&L
	WeakWinRate     float64 `yaml:"weak_win_rate"`      // WEAK at or below
	Baseline        float64 `yaml:"baseline"`           // win rate with no edge
	SampleScale     int     `yaml:"sample_scale"`       // sample size at which confidence saturates

	Metrics metrics.Config `yaml:"-"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MinEvidence:     4,
		HighEdgeWinRate: 0.65,
		WeakWinRate:     0.35,
		Baseline:        0.5,
		SampleScale:     20,
		Metrics:         metrics.DefaultConfig(),
	}
}

// Discoverer finds patterns in closed trades.
type Discoverer struct {
	cfg Config
	now func() time.Time
}

// NewDiscoverer creates a new discoverer.
func NewDiscoverer(cfg Config) *Discoverer {
	return &Discoverer{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (d *Discoverer) WithClock(now func() time.Time) *Discoverer {
	d.now = now
	return d
}

// Discover computes one pattern per segment with enough evidence.
// Open trades are ignored. Output follows dims order, then segment name.
// An empty dims slice means domain.DefaultDimensions.
func (d *Discoverer) Discover(trades []*domain.TradeRecord, dims []domain.Dimension) []domain.Pattern {
	if len(dims) == 0 {
		dims = domain.DefaultDimensions
	}

	closed := make([]*domain.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}

	discoveredAt := d.now()
	seen := make(map[domain.Dimension]struct{}, len(dims))
	var result []domain.Pattern

	for _, dim := range dims {
		if _, dup := seen[dim]; dup {
			continue
		}
		seen[dim] = struct{}{}

		groups := metrics.GroupBy(closed, dim, d.cfg.Metrics)
		segments := make([]string, 0, len(groups))
		for seg := range groups {
			segments = append(segments, seg)
		}
		sort.Strings(segments)

		for _, seg := range segments {
			p, ok := d.classify(dim, seg, groups[seg])
			if !ok {
				continue
			}
			p.DiscoveredAt = discoveredAt
			result = append(result, p)
		}
	}

	return result
}

// classify builds the pattern for one segment. ok is false when the segment
// lacks evidence or has no decided trades.
func (d *Discoverer) classify(dim domain.Dimension, segment string, group []*domain.TradeRecord) (domain.Pattern, bool) {
	if len(group) < d.cfg.MinEvidence {
		return domain.Pattern{}, false
	}

	m := metrics.ComputeMetrics(group, d.cfg.Metrics)
	if m.Decided() == 0 {
		return domain.Pattern{}, false
	}

	evidence := make([]string, len(group))
	for i, t := range group {
		evidence[i] = t.TradeID
	}
	sort.Strings(evidence)

	return domain.Pattern{
		PatternID:  idhash.ComputePatternID(string(dim), segment, evidence),
		Dimension:  dim,
		Segment:    segment,
		SampleSize: len(group),
		Winners:    m.Winners,
		Losers:     m.Losers,
		WinRate:    m.WinRate,
		NetPnL:     m.NetPnL,
		AvgR:       m.AvgR,
		Edge:       d.Classify(m.WinRate, m.NetPnL),
		Confidence: d.Confidence(len(group), m.WinRate),
		Evidence:   evidence,
	}, true
}

// Classify maps a win rate and net P&L to an edge class.
func (d *Discoverer) Classify(winRate, netPnL float64) domain.EdgeClass {
	switch {
	case winRate >= d.cfg.HighEdgeWinRate && netPnL > 0:
		return domain.EdgeHigh
	case winRate <= d.cfg.WeakWinRate:
		return domain.EdgeWeak
	default:
		return domain.EdgeNeutral
	}
}

// Confidence is min(1, n/SampleScale) * |winRate - Baseline| * 2, clamped to [0,1].
func (d *Discoverer) Confidence(sampleSize int, winRate float64) float64 {
	scale := float64(d.cfg.SampleScale)
	if scale <= 0 {
		scale = 1
	}
	c := math.Min(1, float64(sampleSize)/scale) * math.Abs(winRate-d.cfg.Baseline) * 2
	return math.Max(0, math.Min(1, c))
}

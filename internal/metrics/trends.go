package metrics

import (
	"time"

	"trade-memory/internal/domain"
)

// Trend directions reported for a month.
const (
	TrendImproving    = "improving"
	TrendDeclining    = "declining"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient data"
)

// trendThreshold is the win rate change between the first and last active
// week that counts as a trend.
const trendThreshold = 0.10

// WeekBucket holds metrics for one seven day slice of a longer period.
type WeekBucket struct {
	Index   int // 1-based
	Start   time.Time
	End     time.Time // inclusive last day
	Metrics domain.PerformanceMetrics
}

// WeeklyBuckets splits p into consecutive seven day slices starting at
// p.Start. The last slice is cut at p.End. Empty slices are kept.
func WeeklyBuckets(p domain.Period, trades []*domain.TradeRecord, cfg Config) []WeekBucket {
	var buckets []WeekBucket
	for start, i := p.Start, 1; start.Before(p.End); start, i = start.AddDate(0, 0, 7), i+1 {
		end := start.AddDate(0, 0, 7)
		if end.After(p.End) {
			end = p.End
		}
		var group []*domain.TradeRecord
		for _, t := range trades {
			ts := t.Timestamp.UTC()
			if !ts.Before(start) && ts.Before(end) {
				group = append(group, t)
			}
		}
		buckets = append(buckets, WeekBucket{
			Index:   i,
			Start:   start,
			End:     end.AddDate(0, 0, -1),
			Metrics: ComputeMetrics(group, cfg),
		})
	}
	return buckets
}

// Trend compares the win rate of the first and last weeks that have enough
// decided trades.
func Trend(buckets []WeekBucket) string {
	var active []WeekBucket
	for _, b := range buckets {
		if !b.Metrics.InsufficientData {
			active = append(active, b)
		}
	}
	if len(active) < 2 {
		return TrendInsufficient
	}
	delta := active[len(active)-1].Metrics.WinRate - active[0].Metrics.WinRate
	switch {
	case delta > trendThreshold:
		return TrendImproving
	case delta < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

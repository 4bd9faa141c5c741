package metrics

import (
	"testing"
	"time"

	"trade-memory/internal/domain"
)

func tradeOn(id string, day int, pnl float64) *domain.TradeRecord {
	t := makeTrade(id, "london", "A", 0.6, ptr(pnl))
	t.Timestamp = time.Date(2026, 2, day, 10, 0, 0, 0, time.UTC)
	return t
}

func TestWeeklyBuckets_February(t *testing.T) {
	p := domain.MonthlyPeriod(2026, time.February)
	trades := []*domain.TradeRecord{
		tradeOn("a", 1, 10),
		tradeOn("b", 7, -5),
		tradeOn("c", 8, 3),
		tradeOn("d", 28, -1),
	}

	buckets := WeeklyBuckets(p, trades, DefaultConfig())

	if len(buckets) != 4 {
		t.Fatalf("len(buckets) = %d, want 4", len(buckets))
	}
	if got := buckets[0].Metrics.TradeCount; got != 2 {
		t.Errorf("week 1 trades = %d, want 2", got)
	}
	if got := buckets[1].Metrics.TradeCount; got != 1 {
		t.Errorf("week 2 trades = %d, want 1", got)
	}
	if got := buckets[3].End.Format("2006-01-02"); got != "2026-02-28" {
		t.Errorf("last bucket end = %s", got)
	}
	if buckets[2].Metrics.TradeCount != 0 || !buckets[2].Metrics.NoData {
		t.Errorf("week 3 should be empty, got %+v", buckets[2].Metrics)
	}
}

func TestWeeklyBuckets_PartialLastWeek(t *testing.T) {
	p := domain.MonthlyPeriod(2026, time.March)
	buckets := WeeklyBuckets(p, nil, DefaultConfig())

	if len(buckets) != 5 {
		t.Fatalf("len(buckets) = %d, want 5", len(buckets))
	}
	last := buckets[4]
	if last.Start.Day() != 29 || last.End.Day() != 31 {
		t.Errorf("last bucket = %s..%s", last.Start, last.End)
	}
}

func TestTrend(t *testing.T) {
	week := func(wins, losses int) WeekBucket {
		var trades []*domain.TradeRecord
		for i := 0; i < wins; i++ {
			trades = append(trades, makeTrade("w", "", "", 0.5, ptr(1.0)))
		}
		for i := 0; i < losses; i++ {
			trades = append(trades, makeTrade("l", "", "", 0.5, ptr(-1.0)))
		}
		return WeekBucket{Metrics: ComputeMetrics(trades, DefaultConfig())}
	}

	tests := []struct {
		name    string
		buckets []WeekBucket
		want    string
	}{
		{"improving", []WeekBucket{week(1, 3), week(0, 0), week(3, 1)}, TrendImproving},
		{"declining", []WeekBucket{week(3, 1), week(1, 3)}, TrendDeclining},
		{"stable", []WeekBucket{week(2, 2), week(1, 1)}, TrendStable},
		{"one active week", []WeekBucket{week(2, 2), week(0, 0)}, TrendInsufficient},
		{"none", nil, TrendInsufficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Trend(tt.buckets); got != tt.want {
				t.Errorf("Trend() = %q, want %q", got, tt.want)
			}
		})
	}
}

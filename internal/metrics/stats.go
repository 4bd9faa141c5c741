package metrics

import (
	"sort"
	"time"

	"trade-memory/internal/domain"
)

// PeriodStats are the extended statistics shown in weekly and monthly reports.
// Only closed trades contribute.
type PeriodStats struct {
	GrossProfit  float64
	GrossLoss    float64 // positive magnitude
	ProfitFactor float64 // GrossProfit / GrossLoss, 0 when there are no losses
	AvgWin       float64
	AvgLoss      float64 // negative
	MaxDrawdown  float64

	BestTradeID  string
	BestPnL      float64
	WorstTradeID string
	WorstPnL     float64

	MaxWinStreak  int
	MaxLossStreak int

	ByWeekday map[time.Weekday]domain.PerformanceMetrics
}

// ComputePeriodStats computes PeriodStats. Trades are ordered by
// Timestamp ASC, TradeID ASC before order-dependent statistics.
func ComputePeriodStats(trades []*domain.TradeRecord, cfg Config) PeriodStats {
	closed := sortedClosed(trades)
	stats := PeriodStats{ByWeekday: make(map[time.Weekday]domain.PerformanceMetrics)}
	if len(closed) == 0 {
		return stats
	}

	outcomes := make([]float64, len(closed))
	var wins, losses int
	for i, t := range closed {
		pnl := *t.PnL
		outcomes[i] = pnl
		switch {
		case pnl > 0:
			stats.GrossProfit += pnl
			wins++
		case pnl < 0:
			stats.GrossLoss -= pnl
			losses++
		}
		if stats.BestTradeID == "" || pnl > stats.BestPnL {
			stats.BestTradeID, stats.BestPnL = t.TradeID, pnl
		}
		if stats.WorstTradeID == "" || pnl < stats.WorstPnL {
			stats.WorstTradeID, stats.WorstPnL = t.TradeID, pnl
		}
	}

	if wins > 0 {
		stats.AvgWin = stats.GrossProfit / float64(wins)
	}
	if losses > 0 {
		stats.AvgLoss = -stats.GrossLoss / float64(losses)
	}
	if stats.GrossLoss > 0 {
		stats.ProfitFactor = stats.GrossProfit / stats.GrossLoss
	}

	stats.MaxDrawdown = computeMaxDrawdown(outcomes)
	stats.MaxWinStreak, stats.MaxLossStreak = computeStreaks(outcomes)

	byDay := make(map[time.Weekday][]*domain.TradeRecord)
	for _, t := range closed {
		day := t.Timestamp.UTC().Weekday()
		byDay[day] = append(byDay[day], t)
	}
	for day, group := range byDay {
		stats.ByWeekday[day] = ComputeMetrics(group, cfg)
	}

	return stats
}

// BestAndWorstWeekday returns the weekdays with the highest and lowest net P&L.
// ok is false when there are no closed trades.
func (s PeriodStats) BestAndWorstWeekday() (best, worst time.Weekday, ok bool) {
	first := true
	for day := time.Sunday; day <= time.Saturday; day++ {
		m, exists := s.ByWeekday[day]
		if !exists {
			continue
		}
		if first {
			best, worst, first = day, day, false
			continue
		}
		if m.NetPnL > s.ByWeekday[best].NetPnL {
			best = day
		}
		if m.NetPnL < s.ByWeekday[worst].NetPnL {
			worst = day
		}
	}
	return best, worst, !first
}

func sortedClosed(trades []*domain.TradeRecord) []*domain.TradeRecord {
	closed := make([]*domain.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		if !closed[i].Timestamp.Equal(closed[j].Timestamp) {
			return closed[i].Timestamp.Before(closed[j].Timestamp)
		}
		return closed[i].TradeID < closed[j].TradeID
	})
	return closed
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative P&L.
// Outcomes must be in chronological order.
func computeMaxDrawdown(outcomes []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, o := range outcomes {
		cumulative += o
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeStreaks finds the longest runs of wins and losses.
// Breakeven trades end both runs.
func computeStreaks(outcomes []float64) (maxWin, maxLoss int) {
	var win, loss int
	for _, o := range outcomes {
		switch {
		case o > 0:
			win++
			loss = 0
		case o < 0:
			loss++
			win = 0
		default:
			win, loss = 0, 0
		}
		maxWin = max(maxWin, win)
		maxLoss = max(maxLoss, loss)
	}
	return maxWin, maxLoss
}

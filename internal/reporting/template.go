package reporting

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"trade-memory/internal/domain"
	"trade-memory/internal/metrics"
)

const (
	maxDailyObservations  = 3
	maxPeriodObservations = 4
	maxMistakes           = 5

	minDailySample  = 3 // decided trades before a daily report trusts its stats
	minPeriodSample = 5

	strongWinRate = 0.60 // [STRONG] flag in breakdowns
	weakWinRate   = 0.35 // [WEAK] flag in breakdowns
	pauseWinRate  = 0.30
)

// RenderRuleBased renders the deterministic report for a period.
// Identical summaries always produce byte-identical text.
func RenderRuleBased(s *metrics.PeriodSummary, cfg Config) string {
	if s.Overall.NoData {
		return renderNoTrades(s.Period)
	}

	var sb strings.Builder
	sb.WriteString(s.Period.Header())
	sb.WriteString("\n\n")

	writePerformance(&sb, s)
	writeStatus(&sb, s)

	if s.Period.Kind != domain.PeriodDaily {
		writeBreakdowns(&sb, s)
	}

	sb.WriteString("KEY OBSERVATIONS:\n")
	obs := observations(s)
	if len(obs) == 0 {
		sb.WriteString("- No notable deviations this period.\n")
	}
	for _, o := range obs {
		fmt.Fprintf(&sb, "- %s\n", o)
	}
	sb.WriteString("\n")

	sb.WriteString("MISTAKES:\n")
	writeMistakes(&sb, s.Trades, cfg)
	sb.WriteString("\n")

	sb.WriteString(s.Period.ForwardLabel())
	sb.WriteString("\n")
	for _, line := range forwardPlan(s) {
		fmt.Fprintf(&sb, "- %s\n", line)
	}

	return sb.String()
}

func renderNoTrades(p domain.Period) string {
	span := "today"
	switch p.Kind {
	case domain.PeriodWeekly:
		span = "this week"
	case domain.PeriodMonthly:
		span = "this month"
	}
	return fmt.Sprintf("%s\n\nPERFORMANCE:\nNo trades %s.\n\nSTATUS: Waiting for market opportunities.\n", p.Header(), span)
}

func writePerformance(sb *strings.Builder, s *metrics.PeriodSummary) {
	m := s.Overall
	sb.WriteString("PERFORMANCE:\n")
	fmt.Fprintf(sb, "Trades: %d | Winners: %d | Losers: %d\n", m.TradeCount, m.Winners, m.Losers)
	fmt.Fprintf(sb, "Net P&L: %s | Win Rate: %.1f%% | Avg R: %.2f", formatMoney(m.NetPnL), m.WinRate*100, m.AvgR)
	if s.Period.Kind != domain.PeriodDaily {
		fmt.Fprintf(sb, " | Profit Factor: %s", formatProfitFactor(s.Stats))
	}
	sb.WriteString("\n")

	if m.Breakeven > 0 || m.OpenCount > 0 {
		fmt.Fprintf(sb, "Breakeven: %d | Open: %d\n", m.Breakeven, m.OpenCount)
	}

	if s.Period.Kind != domain.PeriodDaily && s.Stats.BestTradeID != "" {
		fmt.Fprintf(sb, "Max Drawdown: %s | Best: %s (%s) | Worst: %s (%s)\n",
			formatMoney(s.Stats.MaxDrawdown),
			s.Stats.BestTradeID, formatMoney(s.Stats.BestPnL),
			s.Stats.WorstTradeID, formatMoney(s.Stats.WorstPnL))
	}

	if s.Period.Kind == domain.PeriodMonthly {
		days := tradingDays(s.Trades)
		perDay := 0.0
		if days > 0 {
			perDay = float64(m.TradeCount) / float64(days)
		}
		fmt.Fprintf(sb, "Trading Days: %d | Avg Trades/Day: %.1f\n", days, perDay)
	}
	sb.WriteString("\n")
}

func writeStatus(sb *strings.Builder, s *metrics.PeriodSummary) {
	minSample := minDailySample
	if s.Period.Kind != domain.PeriodDaily {
		minSample = minPeriodSample
	}
	if s.Overall.Decided() < minSample {
		sb.WriteString("STATUS: Insufficient data for pattern analysis.\n\n")
	}
}

func writeBreakdowns(sb *strings.Builder, s *metrics.PeriodSummary) {
	if s.Period.Kind == domain.PeriodMonthly {
		buckets := metrics.WeeklyBuckets(s.Period, s.Trades, s.Config)
		sb.WriteString("WEEKLY TRENDS:\n")
		for _, b := range buckets {
			fmt.Fprintf(sb, "- Week %d (%s to %s): %d trades, WR %.1f%%, P&L %s\n",
				b.Index, b.Start.Format("2006-01-02"), b.End.Format("2006-01-02"),
				b.Metrics.TradeCount, b.Metrics.WinRate*100, formatMoney(b.Metrics.NetPnL))
		}
		fmt.Fprintf(sb, "- Trend: %s\n\n", metrics.Trend(buckets))
	}

	if strategies := s.Segments[domain.DimensionStrategy]; len(strategies) > 0 {
		sb.WriteString("STRATEGY BREAKDOWN:\n")
		for _, name := range metrics.SortedSegments(strategies) {
			m := strategies[name]
			fmt.Fprintf(sb, "- %s: %d trades, %d wins, WR %.1f%%, P&L %s%s\n",
				name, m.TradeCount, m.Winners, m.WinRate*100, formatMoney(m.NetPnL), strengthFlag(m))
		}
		sb.WriteString("\n")
	}

	if sessions := s.Segments[domain.DimensionSession]; len(sessions) > 0 {
		sb.WriteString("SESSION PATTERNS:\n")
		for _, name := range metrics.SortedSegments(sessions) {
			m := sessions[name]
			fmt.Fprintf(sb, "- %s: %d trades, WR %.1f%%, P&L %s\n",
				name, m.TradeCount, m.WinRate*100, formatMoney(m.NetPnL))
		}
		sb.WriteString("\n")
	}

	if best, worst, ok := s.Stats.BestAndWorstWeekday(); ok {
		sb.WriteString("DAY OF WEEK:\n")
		fmt.Fprintf(sb, "- Best: %s (%s)\n", best, formatMoney(s.Stats.ByWeekday[best].NetPnL))
		fmt.Fprintf(sb, "- Worst: %s (%s)\n\n", worst, formatMoney(s.Stats.ByWeekday[worst].NetPnL))
	}

	sb.WriteString("STREAKS:\n")
	fmt.Fprintf(sb, "- Max win streak: %d\n", s.Stats.MaxWinStreak)
	fmt.Fprintf(sb, "- Max loss streak: %d\n\n", s.Stats.MaxLossStreak)
}

func observations(s *metrics.PeriodSummary) []string {
	m := s.Overall
	var obs []string

	if m.AvgConfidence > 0.8 {
		obs = append(obs, fmt.Sprintf("High average confidence (%.2f): the agent is selective.", m.AvgConfidence))
	}
	if !m.InsufficientData {
		switch {
		case m.WinRate > 0.60:
			obs = append(obs, fmt.Sprintf("Strong win rate (%.1f%%): edge appears present.", m.WinRate*100))
		case m.WinRate < 0.40:
			obs = append(obs, fmt.Sprintf("Low win rate (%.1f%%): review entry criteria.", m.WinRate*100))
		}
	}
	if m.RCount > 0 && m.AvgR < 0 {
		obs = append(obs, fmt.Sprintf("Negative avg R (%.2f): risk management issue.", m.AvgR))
	}

	if s.Period.Kind == domain.PeriodDaily {
		return capped(obs, maxDailyObservations)
	}

	if s.Stats.MaxLossStreak >= 3 {
		obs = append(obs, fmt.Sprintf("Loss streak of %d detected: check for tilt or regime change.", s.Stats.MaxLossStreak))
	}
	if s.Stats.AvgWin > 0 && s.Stats.AvgLoss < 0 {
		if rr := s.Stats.AvgWin / -s.Stats.AvgLoss; rr < 1.0 {
			obs = append(obs, fmt.Sprintf("Reward/risk ratio %.2f is below 1.0: improve target placement.", rr))
		}
	}
	if s.Period.Kind == domain.PeriodMonthly {
		switch metrics.Trend(metrics.WeeklyBuckets(s.Period, s.Trades, s.Config)) {
		case metrics.TrendImproving:
			obs = append(obs, "Win rate trending upward across weeks.")
		case metrics.TrendDeclining:
			obs = append(obs, "Win rate declining across weeks: review for regime change.")
		}
	}
	strategies := s.Segments[domain.DimensionStrategy]
	for _, name := range metrics.SortedSegments(strategies) {
		sm := strategies[name]
		if sm.Decided() >= 3 && sm.WinRate <= pauseWinRate {
			obs = append(obs, fmt.Sprintf("Strategy '%s' underperforming (%.0f%% WR): consider pausing.", name, sm.WinRate*100))
		}
	}

	return capped(obs, maxPeriodObservations)
}

// writeMistakes lists losing trades entered above the high confidence threshold.
func writeMistakes(sb *strings.Builder, trades []*domain.TradeRecord, cfg Config) {
	var mistakes []*domain.TradeRecord
	for _, t := range trades {
		if t.IsClosed() && *t.PnL < 0 && t.Confidence > cfg.HighConfidence {
			mistakes = append(mistakes, t)
		}
	}
	if len(mistakes) == 0 {
		sb.WriteString("- None.\n")
		return
	}

	sort.SliceStable(mistakes, func(i, j int) bool {
		if !mistakes[i].Timestamp.Equal(mistakes[j].Timestamp) {
			return mistakes[i].Timestamp.Before(mistakes[j].Timestamp)
		}
		return mistakes[i].TradeID < mistakes[j].TradeID
	})

	for i, t := range mistakes {
		if i == maxMistakes {
			fmt.Fprintf(sb, "- ... and %d more.\n", len(mistakes)-maxMistakes)
			break
		}
		fmt.Fprintf(sb, "- %s: High confidence (%.2f) but lost %s\n", t.TradeID, t.Confidence, formatMoney(-*t.PnL))
	}
}

func forwardPlan(s *metrics.PeriodSummary) []string {
	m := s.Overall
	var lines []string

	if dim, seg, sm, ok := mostExtremeSegment(s); ok {
		if sm.WinRate > 0.5 {
			lines = append(lines, fmt.Sprintf("Favor %s %s: win rate %.1f%% over %d decided trades.",
				dim, seg, sm.WinRate*100, sm.Decided()))
		} else {
			lines = append(lines, fmt.Sprintf("Reduce exposure to %s %s: win rate %.1f%% over %d decided trades.",
				dim, seg, sm.WinRate*100, sm.Decided()))
		}
	}

	if !m.InsufficientData && m.WinRate < 0.5 {
		if s.Period.Kind == domain.PeriodDaily {
			lines = append(lines, "Review entry criteria and consider tighter filters.")
		} else {
			lines = append(lines, "Tighten entry filters: selectivity over volume.")
		}
	}

	switch s.Period.Kind {
	case domain.PeriodDaily:
		if m.RCount > 0 && m.AvgR < 1.0 {
			lines = append(lines, "Focus on improving R-multiple: trail stops more aggressively.")
		}
	default:
		if s.Stats.MaxLossStreak >= 3 {
			lines = append(lines, "Implement a cooldown after 3 consecutive losses.")
		}
	}

	if len(lines) == 0 {
		lines = append(lines, "Continue monitoring. More data needed.")
	}
	return lines
}

// mostExtremeSegment returns the session or strategy segment whose win rate
// is furthest from 50%. Unknown and insufficient segments are skipped; ties
// keep the first in session-then-strategy, lexical order.
func mostExtremeSegment(s *metrics.PeriodSummary) (domain.Dimension, string, domain.PerformanceMetrics, bool) {
	var (
		bestDim domain.Dimension
		bestSeg string
		bestM   domain.PerformanceMetrics
		bestDev float64
		found   bool
	)
	for _, dim := range []domain.Dimension{domain.DimensionSession, domain.DimensionStrategy} {
		segments := s.Segments[dim]
		for _, seg := range metrics.SortedSegments(segments) {
			m := segments[seg]
			if seg == domain.SegmentUnknown || m.InsufficientData {
				continue
			}
			if dev := math.Abs(m.WinRate - 0.5); dev > bestDev {
				bestDim, bestSeg, bestM, bestDev, found = dim, seg, m, dev, true
			}
		}
	}
	return bestDim, bestSeg, bestM, found
}

func strengthFlag(m domain.PerformanceMetrics) string {
	switch {
	case m.InsufficientData:
		return ""
	case m.WinRate >= strongWinRate:
		return " [STRONG]"
	case m.WinRate <= weakWinRate:
		return " [WEAK]"
	default:
		return ""
	}
}

func tradingDays(trades []*domain.TradeRecord) int {
	days := make(map[string]struct{})
	for _, t := range trades {
		days[t.Timestamp.UTC().Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}

func formatMoney(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func formatProfitFactor(s metrics.PeriodStats) string {
	if s.GrossLoss == 0 && s.GrossProfit > 0 {
		return "INF"
	}
	return fmt.Sprintf("%.2f", s.ProfitFactor)
}

func capped(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

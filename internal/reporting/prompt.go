package reporting

import (
	"fmt"
	"sort"
	"strings"

	"trade-memory/internal/domain"
	"trade-memory/internal/metrics"
)

// BuildPrompt renders the generator prompt for a period: the required output
// layout, the measured metrics and a bounded sample of trade reasoning.
func BuildPrompt(s *metrics.PeriodSummary, cfg Config) string {
	p := s.Period
	m := s.Overall

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a trade reflection engine. Analyze the trades below and write a structured %s.\n\n",
		strings.ToLower(p.Title()))

	sb.WriteString("## Metrics\n")
	fmt.Fprintf(&sb, "Period: %s\n", p.ID())
	fmt.Fprintf(&sb, "Trades: %d (open %d) | Winners: %d | Losers: %d | Breakeven: %d\n",
		m.TradeCount, m.OpenCount, m.Winners, m.Losers, m.Breakeven)
	fmt.Fprintf(&sb, "Net P&L: %s | Win Rate: %.1f%% | Avg R: %.2f | Avg Confidence: %.2f\n",
		formatMoney(m.NetPnL), m.WinRate*100, m.AvgR, m.AvgConfidence)
	if m.InsufficientData {
		sb.WriteString("Note: insufficient data for pattern analysis.\n")
	}

	for _, dim := range []domain.Dimension{domain.DimensionSession, domain.DimensionStrategy, domain.DimensionConfidenceBand} {
		segments := s.Segments[dim]
		if len(segments) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\nBy %s:\n", dim)
		for _, seg := range metrics.SortedSegments(segments) {
			sm := segments[seg]
			fmt.Fprintf(&sb, "- %s: %d trades, WR %.1f%%, P&L %s\n", seg, sm.TradeCount, sm.WinRate*100, formatMoney(sm.NetPnL))
		}
	}

	sample := reasoningSample(s.Trades, cfg.ReasoningSample)
	if len(sample) > 0 {
		fmt.Fprintf(&sb, "\n## Trades (%d of %d)\n", len(sample), len(s.Trades))
		for _, t := range sample {
			fmt.Fprintf(&sb, "- %s %s %s %s conf=%.2f session=%s outcome=%s\n",
				t.TradeID, t.Timestamp.UTC().Format("2006-01-02T15:04Z"), t.Strategy, t.Direction,
				t.Confidence, t.Market.Session, outcome(t))
			if t.Reasoning != "" {
				fmt.Fprintf(&sb, "  reasoning: %s\n", truncate(t.Reasoning, cfg.ReasoningMaxLen))
			}
			if t.Lessons != "" {
				fmt.Fprintf(&sb, "  lessons: %s\n", truncate(t.Lessons, cfg.ReasoningMaxLen))
			}
		}
	}

	sb.WriteString("\n## Output format (follow exactly)\n")
	sb.WriteString(p.Header())
	sb.WriteString("\n\nPERFORMANCE:\n")
	fmt.Fprintf(&sb, "Trades: %d | Winners: %d | Losers: %d\n", m.TradeCount, m.Winners, m.Losers)
	fmt.Fprintf(&sb, "Net P&L: %s | Win Rate: %.1f%% | Avg R: %.2f\n\n", formatMoney(m.NetPnL), m.WinRate*100, m.AvgR)
	sb.WriteString("KEY OBSERVATIONS:\n- [at most 3, one or two sentences each, actionable]\n\n")
	sb.WriteString("MISTAKES:\n- [clearly wrong trades and why]\n\n")
	sb.WriteString(p.ForwardLabel())
	sb.WriteString("\n- [what to watch next]\n\n")

	sb.WriteString("## Rules\n")
	sb.WriteString("- Keep the header line exactly as given.\n")
	sb.WriteString("- Only state observations backed by the numbers above. No encouragement or filler.\n")
	sb.WriteString("- If there are fewer than 3 decided trades, say \"Insufficient data for pattern analysis.\"\n")

	return sb.String()
}

// reasoningSample picks up to n trades, losers with the highest confidence
// first, then the rest in time order.
func reasoningSample(trades []*domain.TradeRecord, n int) []*domain.TradeRecord {
	if n <= 0 || len(trades) == 0 {
		return nil
	}
	sorted := make([]*domain.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := isLoss(sorted[i]), isLoss(sorted[j])
		if li != lj {
			return li
		}
		if li && sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func isLoss(t *domain.TradeRecord) bool {
	return t.IsClosed() && *t.PnL < 0
}

func outcome(t *domain.TradeRecord) string {
	if !t.IsClosed() {
		return "open"
	}
	if t.PnLR != nil {
		return fmt.Sprintf("%s (%.2fR)", formatMoney(*t.PnL), *t.PnLR)
	}
	return formatMoney(*t.PnL)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

package reporting

import (
	"fmt"
	"strings"
	"time"

	"trade-memory/internal/domain"
)

// RenderMarkdown renders a reflection report as a Markdown document.
func RenderMarkdown(r *domain.ReflectionReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s: %s\n\n", titleCase(r.Period.Title()), r.Period.ID()))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Provenance
	sb.WriteString("## Source\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Source | %s |\n", r.Source))
	if r.Model != "" {
		sb.WriteString(fmt.Sprintf("| Model | %s |\n", r.Model))
	}
	sb.WriteString(fmt.Sprintf("| Used Fallback | %t |\n", r.UsedFallback))
	if r.UsedFallback {
		sb.WriteString(fmt.Sprintf("| Fallback Reason | %s |\n", escapeCell(r.FallbackReason)))
	}
	sb.WriteString("\n")

	// Metrics
	m := r.Metrics
	sb.WriteString("## Metrics\n\n")
	if m.NoData {
		sb.WriteString("No trades in this period.\n\n")
	} else {
		sb.WriteString("| Trades | Open | Winners | Losers | Breakeven | WinRate | NetPnL | AvgR |\n")
		sb.WriteString("|--------|------|---------|--------|-----------|---------|--------|------|\n")
		sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d | %.4f | %.2f | %.2f |\n\n",
			m.TradeCount, m.OpenCount, m.Winners, m.Losers, m.Breakeven, m.WinRate, m.NetPnL, m.AvgR))
		if m.InsufficientData {
			sb.WriteString("**Insufficient data** for a reliable win rate.\n\n")
		}
	}

	// Narrative
	sb.WriteString("## Narrative\n\n```\n")
	sb.WriteString(strings.TrimRight(r.Narrative, "\n"))
	sb.WriteString("\n```\n")

	return sb.String()
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

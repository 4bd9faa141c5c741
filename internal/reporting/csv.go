package reporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"trade-memory/internal/domain"
	"trade-memory/internal/metrics"
)

// RenderSegmentsCSV renders the segmented metrics of a period as CSV,
// one row per dimension and segment.
func RenderSegmentsCSV(s *metrics.PeriodSummary) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"period", "dimension", "segment", "trades", "open", "winners", "losers", "breakeven",
		"win_rate", "net_pnl", "avg_r", "insufficient_data",
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, dim := range []domain.Dimension{domain.DimensionSession, domain.DimensionStrategy, domain.DimensionConfidenceBand} {
		segments := s.Segments[dim]
		for _, seg := range metrics.SortedSegments(segments) {
			m := segments[seg]
			row := []string{
				s.Period.ID(),
				string(dim),
				seg,
				strconv.Itoa(m.TradeCount),
				strconv.Itoa(m.OpenCount),
				strconv.Itoa(m.Winners),
				strconv.Itoa(m.Losers),
				strconv.Itoa(m.Breakeven),
				fmt.Sprintf("%.6f", m.WinRate),
				fmt.Sprintf("%.2f", m.NetPnL),
				fmt.Sprintf("%.4f", m.AvgR),
				strconv.FormatBool(m.InsufficientData),
			}
			if err := w.Write(row); err != nil {
				return "", fmt.Errorf("write csv row %s/%s: %w", dim, seg, err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

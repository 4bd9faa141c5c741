package metrics

import (
	"math"
	"strings"

	"trade-memory/internal/domain"
)

// Config holds aggregation thresholds.
type Config struct {
	// MinSample is the minimum winners+losers before a win rate is reported.
	MinSample int `yaml:"min_sample"`
	// HighBandMin: confidence strictly above this is the "high" band.
	HighBandMin float64 `yaml:"high_band_min"`
	// LowBandMax: confidence strictly below this is the "low" band.
	LowBandMax float64 `yaml:"low_band_max"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MinSample:   1,
		HighBandMin: 0.75,
		LowBandMax:  0.55,
	}
}

// ComputeMetrics summarizes trades. Open trades count towards TradeCount
// and OpenCount only. Empty input yields a zero value with NoData set.
func ComputeMetrics(trades []*domain.TradeRecord, cfg Config) domain.PerformanceMetrics {
	m := domain.PerformanceMetrics{TradeCount: len(trades)}
	if len(trades) == 0 {
		m.NoData = true
		m.InsufficientData = true
		return m
	}

	var sumR, sumConf float64
	for _, t := range trades {
		sumConf += t.Confidence
		if t.PnLR != nil {
			sumR += *t.PnLR
			m.RCount++
		}
		if !t.IsClosed() {
			m.OpenCount++
			continue
		}

		pnl := *t.PnL
		m.NetPnL += pnl
		switch {
		case pnl > 0:
			m.Winners++
		case pnl < 0:
			m.Losers++
		default:
			m.Breakeven++
		}
	}

	m.AvgConfidence = sumConf / float64(len(trades))
	if m.RCount > 0 {
		m.AvgR = sumR / float64(m.RCount)
	}

	minSample := cfg.MinSample
	if minSample < 1 {
		minSample = 1
	}
	decided := m.Decided()
	if decided < minSample {
		m.InsufficientData = true
	} else {
		m.WinRate = float64(m.Winners) / float64(decided)
	}

	return m
}

// ComputeSegmentedMetrics groups trades by dim and summarizes each group.
// Trades without a value for dim land in domain.SegmentUnknown.
func ComputeSegmentedMetrics(trades []*domain.TradeRecord, dim domain.Dimension, cfg Config) map[string]domain.PerformanceMetrics {
	groups := GroupBy(trades, dim, cfg)
	result := make(map[string]domain.PerformanceMetrics, len(groups))
	for key, group := range groups {
		result[key] = ComputeMetrics(group, cfg)
	}
	return result
}

// GroupBy partitions trades by their segment key for dim, preserving input order.
func GroupBy(trades []*domain.TradeRecord, dim domain.Dimension, cfg Config) map[string][]*domain.TradeRecord {
	groups := make(map[string][]*domain.TradeRecord)
	for _, t := range trades {
		key := SegmentKey(t, dim, cfg)
		groups[key] = append(groups[key], t)
	}
	return groups
}

// SegmentKey returns the segment a trade belongs to for dim.
func SegmentKey(t *domain.TradeRecord, dim domain.Dimension, cfg Config) string {
	var key string
	switch dim {
	case domain.DimensionSession:
		key = strings.ToLower(strings.TrimSpace(t.Market.Session))
	case domain.DimensionStrategy:
		key = strings.TrimSpace(t.Strategy)
	case domain.DimensionSymbol:
		key = strings.TrimSpace(t.Symbol)
	case domain.DimensionConfidenceBand:
		key = ConfidenceBand(t.Confidence, cfg)
	case domain.DimensionStrategyDirection:
		strategy := strings.TrimSpace(t.Strategy)
		if strategy != "" && t.Direction != "" {
			key = strategy + "/" + string(t.Direction)
		}
	}
	if key == "" {
		return domain.SegmentUnknown
	}
	return key
}

// ConfidenceBand buckets a confidence score. Scores outside [0,1] are unknown.
func ConfidenceBand(confidence float64, cfg Config) string {
	switch {
	case math.IsNaN(confidence) || confidence < 0 || confidence > 1:
		return domain.SegmentUnknown
	case confidence > cfg.HighBandMin:
		return domain.BandHigh
	case confidence < cfg.LowBandMax:
		return domain.BandLow
	default:
		return domain.BandMedium
	}
}

// SplitStrategyDirection splits a strategy_direction segment key.
func SplitStrategyDirection(segment string) (string, domain.Direction, bool) {
	i := strings.LastIndex(segment, "/")
	if i <= 0 || i == len(segment)-1 {
		return "", "", false
	}
	return segment[:i], domain.Direction(segment[i+1:]), true
}

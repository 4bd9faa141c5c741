package api

import (
	"time"

	"trade-memory/internal/domain"
)

// ReportResponse is the JSON form of a reflection report.
type ReportResponse struct {
	Kind           string          `json:"kind"`
	PeriodID       string          `json:"period_id"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	Metrics        MetricsResponse `json:"metrics"`
	Narrative      string          `json:"narrative"`
	Source         string          `json:"source"`
	UsedFallback   bool            `json:"used_fallback"`
	FallbackReason string          `json:"fallback_reason,omitempty"`
	Model          string          `json:"model,omitempty"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// MetricsResponse is the JSON form of performance metrics.
type MetricsResponse struct {
	TradeCount       int     `json:"trade_count"`
	OpenCount        int     `json:"open_count"`
	Winners          int     `json:"winners"`
	Losers           int     `json:"losers"`
	Breakeven        int     `json:"breakeven"`
	NetPnL           float64 `json:"net_pnl"`
	WinRate          float64 `json:"win_rate"`
	AvgR             float64 `json:"avg_r"`
	AvgConfidence    float64 `json:"avg_confidence"`
	NoData           bool    `json:"no_data"`
	InsufficientData bool    `json:"insufficient_data"`
}

// ReflectionResponse is returned by POST /api/v1/reflect/:kind.
type ReflectionResponse struct {
	Report ReportResponse `json:"report"`
	Files  []string       `json:"files,omitempty"`
}

// PatternResponse is the JSON form of a discovered pattern.
type PatternResponse struct {
	PatternID    string    `json:"pattern_id"`
	Dimension    string    `json:"dimension"`
	Segment      string    `json:"segment"`
	SampleSize   int       `json:"sample_size"`
	Winners      int       `json:"winners"`
	Losers       int       `json:"losers"`
	WinRate      float64   `json:"win_rate"`
	NetPnL       float64   `json:"net_pnl"`
	AvgR         float64   `json:"avg_r"`
	Edge         string    `json:"edge"`
	Confidence   float64   `json:"confidence"`
	Evidence     []string  `json:"evidence"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// AdjustmentResponse is the JSON form of a strategy adjustment.
type AdjustmentResponse struct {
	AdjustmentID    string    `json:"adjustment_id"`
	Type            string    `json:"type"`
	TargetKind      string    `json:"target_kind"`
	Target          string    `json:"target"`
	Parameter       string    `json:"parameter"`
	OldValue        string    `json:"old_value"`
	NewValue        string    `json:"new_value"`
	Justification   string    `json:"justification"`
	SourcePatternID string    `json:"source_pattern_id"`
	Evidence        []string  `json:"evidence"`
	Confidence      float64   `json:"confidence"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	StatusChangedAt time.Time `json:"status_changed_at"`
}

// NewReportResponse converts a report for JSON output.
func NewReportResponse(r *domain.ReflectionReport) ReportResponse {
	m := r.Metrics
	return ReportResponse{
		Kind:        string(r.Period.Kind),
		PeriodID:    r.Period.ID(),
		PeriodStart: r.Period.Start,
		PeriodEnd:   r.Period.End,
		Metrics: MetricsResponse{
			TradeCount:       m.TradeCount,
			OpenCount:        m.OpenCount,
			Winners:          m.Winners,
			Losers:           m.Losers,
			Breakeven:        m.Breakeven,
			NetPnL:           m.NetPnL,
			WinRate:          m.WinRate,
			AvgR:             m.AvgR,
			AvgConfidence:    m.AvgConfidence,
			NoData:           m.NoData,
			InsufficientData: m.InsufficientData,
		},
		Narrative:      r.Narrative,
		Source:         string(r.Source),
		UsedFallback:   r.UsedFallback,
		FallbackReason: r.FallbackReason,
		Model:          r.Model,
		GeneratedAt:    r.GeneratedAt,
	}
}

// NewPatternResponses converts patterns for JSON output.
func NewPatternResponses(patterns []domain.Pattern) []PatternResponse {
	resp := make([]PatternResponse, 0, len(patterns))
	for _, p := range patterns {
		resp = append(resp, PatternResponse{
			PatternID:    p.PatternID,
			Dimension:    string(p.Dimension),
			Segment:      p.Segment,
			SampleSize:   p.SampleSize,
			Winners:      p.Winners,
			Losers:       p.Losers,
			WinRate:      p.WinRate,
			NetPnL:       p.NetPnL,
			AvgR:         p.AvgR,
			Edge:         string(p.Edge),
			Confidence:   p.Confidence,
			Evidence:     p.Evidence,
			DiscoveredAt: p.DiscoveredAt,
		})
	}
	return resp
}

// NewAdjustmentResponse converts an adjustment for JSON output.
func NewAdjustmentResponse(a *domain.StrategyAdjustment) AdjustmentResponse {
	return AdjustmentResponse{
		AdjustmentID:    a.AdjustmentID,
		Type:            string(a.Type),
		TargetKind:      string(a.TargetKind),
		Target:          a.Target,
		Parameter:       a.Parameter,
		OldValue:        a.OldValue,
		NewValue:        a.NewValue,
		Justification:   a.Justification,
		SourcePatternID: a.SourcePatternID,
		Evidence:        a.Evidence,
		Confidence:      a.Confidence,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
		StatusChangedAt: a.StatusChangedAt,
	}
}

func NewAdjustmentResponses(list []*domain.StrategyAdjustment) []AdjustmentResponse {
	resp := make([]AdjustmentResponse, 0, len(list))
	for _, a := range list {
		resp = append(resp, NewAdjustmentResponse(a))
	}
	return resp
}

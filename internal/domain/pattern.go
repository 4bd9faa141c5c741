package domain

import "time"

// Dimension is a categorical key trades can be segmented by.
type Dimension string

const (
	DimensionSession           Dimension = "session"
	DimensionStrategy          Dimension = "strategy"
	DimensionConfidenceBand    Dimension = "confidence_band"
	DimensionSymbol            Dimension = "symbol"
	DimensionStrategyDirection Dimension = "strategy_direction" // segment is "<strategy>/<direction>"
)

// SegmentUnknown collects trades missing the requested dimension value.
const SegmentUnknown = "unknown"

// Confidence band segment names.
const (
	BandLow    = "low"
	BandMedium = "medium"
	BandHigh   = "high"
)

// DefaultDimensions are the dimensions a discovery pass covers when none are given.
var DefaultDimensions = []Dimension{
	DimensionSession,
	DimensionStrategy,
	DimensionConfidenceBand,
	DimensionStrategyDirection,
}

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, bool) {
	switch d := Dimension(s); d {
	case DimensionSession, DimensionStrategy, DimensionConfidenceBand, DimensionSymbol, DimensionStrategyDirection:
		return d, true
	}
	return "", false
}

// EdgeClass is the qualitative edge of a segment.
type EdgeClass string

const (
	EdgeHigh    EdgeClass = "HIGH_EDGE"
	EdgeWeak    EdgeClass = "WEAK"
	EdgeNeutral EdgeClass = "NEUTRAL"
)

// Pattern is a classified statistic over one segment of one dimension.
type Pattern struct {
	PatternID    string
	Dimension    Dimension
	Segment      string
	SampleSize   int
	Winners      int
	Losers       int
	WinRate      float64
	NetPnL       float64
	AvgR         float64
	Edge         EdgeClass
	Confidence   float64
	Evidence     []string // contributing trade ids, sorted
	DiscoveredAt time.Time
}

// Key returns "<dimension>:<segment>", e.g. "session:asian".
func (p Pattern) Key() string {
	return string(p.Dimension) + ":" + p.Segment
}

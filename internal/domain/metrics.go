package domain

// PerformanceMetrics summarizes a set of trades.
// It is recomputed on every call and never persisted on its own.
type PerformanceMetrics struct {
	TradeCount int // all trades, open and closed
	OpenCount  int // trades without an outcome
	Winners    int // P&L > 0
	Losers     int // P&L < 0
	Breakeven  int // P&L == 0

	NetPnL  float64
	WinRate float64 // winners / (winners + losers), 0 when insufficient
	AvgR    float64 // mean of available R multiples
	RCount  int     // trades contributing to AvgR

	AvgConfidence float64

	NoData           bool // no trades at all
	InsufficientData bool // winners + losers below the minimum sample
}

// Decided returns winners + losers.
func (m PerformanceMetrics) Decided() int {
	return m.Winners + m.Losers
}

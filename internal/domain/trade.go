package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTrade is returned when a trade record violates its invariants.
var ErrInvalidTrade = errors.New("invalid trade record")

// Direction is the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Opposite returns the other side. Unknown directions return themselves.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return d
	}
}

// MarketContext is the market snapshot taken at decision time.
type MarketContext struct {
	Price      float64
	Volatility float64 // ATR or comparable measure
	Session    string  // asian | london | newyork, empty when unknown
	Indicators map[string]float64
}

// TradeRecord is a single agent trading decision and, once closed, its outcome.
// Records are owned by the trade store; reflection code treats them as read-only.
type TradeRecord struct {
	TradeID      string
	AgentID      string
	Timestamp    time.Time // entry time, UTC
	Symbol       string
	Direction    Direction
	PositionSize float64
	Strategy     string
	Confidence   float64 // [0, 1]
	Reasoning    string
	Market       MarketContext

	// Outcome, nil while the trade is open.
	ExitTime         *time.Time
	ExitPrice        *float64
	PnL              *float64
	PnLR             *float64 // P&L in risk multiples
	HoldMinutes      *int
	ExitReasoning    string
	ExecutionQuality *float64
	Lessons          string
}

// IsClosed reports whether the trade has a realized outcome.
func (t *TradeRecord) IsClosed() bool {
	return t.PnL != nil
}

// Validate checks the record invariants: required identity fields,
// confidence range, and outcome consistency.
func (t *TradeRecord) Validate() error {
	if t.TradeID == "" {
		return fmt.Errorf("%w: empty trade id", ErrInvalidTrade)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("%w: %s has no timestamp", ErrInvalidTrade, t.TradeID)
	}
	if t.Direction != DirectionLong && t.Direction != DirectionShort {
		return fmt.Errorf("%w: %s has direction %q", ErrInvalidTrade, t.TradeID, t.Direction)
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		return fmt.Errorf("%w: %s confidence %.2f outside [0,1]", ErrInvalidTrade, t.TradeID, t.Confidence)
	}
	if t.ExitTime != nil && t.ExitTime.Before(t.Timestamp) {
		return fmt.Errorf("%w: %s exits before entry", ErrInvalidTrade, t.TradeID)
	}
	if t.PnL != nil && t.ExitTime == nil {
		return fmt.Errorf("%w: %s has P&L without exit time", ErrInvalidTrade, t.TradeID)
	}
	return nil
}

// Closed returns a copy of t with the outcome fields set.
func (t *TradeRecord) Closed(exitTime time.Time, exitPrice, pnl float64, pnlR *float64, exitReasoning string) *TradeRecord {
	c := *t
	et := exitTime.UTC()
	hold := int(et.Sub(c.Timestamp) / time.Minute)
	c.ExitTime = &et
	c.ExitPrice = &exitPrice
	c.PnL = &pnl
	c.PnLR = pnlR
	c.HoldMinutes = &hold
	c.ExitReasoning = exitReasoning
	return &c
}

// Session tags used by the demo fixtures and agents.
const (
	SessionAsian   = "asian"
	SessionLondon  = "london"
	SessionNewYork = "newyork"
)

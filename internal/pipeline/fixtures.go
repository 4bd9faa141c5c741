package pipeline

import (
	"context"
	"fmt"
	"time"

	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

// demoTrade is one row of the demo journal. day is the offset from the
// week start; pnl and r are ignored for open trades.
type demoTrade struct {
	day       int
	hour, min int
	session   string
	strategy  string
	direction domain.Direction
	conf      float64
	open      bool
	pnl, r    float64
	reasoning string
	lesson    string
}

// The demo week is shaped so every adjustment rule fires once:
// Breakout wins in London, MeanReversion loses in Asia, and Momentum
// shorts lose while its longs win.
var demoTrades = []demoTrade{
	{0, 2, 10, domain.SessionAsian, "MeanReversion", domain.DirectionLong, 0.82, false, -120, -1.0, "fade of overnight spike, RSI 78", "faded a trending move"},
	{0, 9, 5, domain.SessionLondon, "Breakout", domain.DirectionLong, 0.78, false, 240, 2.0, "range high break on London open", ""},
	{0, 15, 30, domain.SessionNewYork, "Momentum", domain.DirectionLong, 0.66, false, 150, 1.2, "continuation after NY open impulse", ""},
	{0, 16, 20, domain.SessionNewYork, "Momentum", domain.DirectionShort, 0.61, false, -90, -0.8, "short into support", "shorted into support"},
	{1, 2, 40, domain.SessionAsian, "MeanReversion", domain.DirectionLong, 0.74, false, -110, -1.0, "mean reversion to VWAP", ""},
	{1, 9, 15, domain.SessionLondon, "Breakout", domain.DirectionLong, 0.81, false, 180, 1.5, "Asian range breakout", ""},
	{1, 15, 10, domain.SessionNewYork, "Momentum", domain.DirectionShort, 0.58, false, -100, -1.0, "breakdown failed to follow through", ""},
	{1, 17, 0, domain.SessionNewYork, "Breakout", domain.DirectionShort, 0.70, false, 130, 1.1, "NY low break", ""},
	{2, 3, 0, domain.SessionAsian, "MeanReversion", domain.DirectionLong, 0.85, false, -130, -1.1, "oversold bounce setup", "ignored higher timeframe trend"},
	{2, 9, 30, domain.SessionLondon, "Breakout", domain.DirectionLong, 0.76, false, 210, 1.8, "London continuation", ""},
	{2, 15, 45, domain.SessionNewYork, "Momentum", domain.DirectionLong, 0.69, false, 120, 1.0, "trend day continuation", ""},
	{2, 16, 50, domain.SessionNewYork, "Momentum", domain.DirectionShort, 0.55, false, 80, 0.7, "lower high rejection", ""},
	{3, 2, 20, domain.SessionAsian, "MeanReversion", domain.DirectionLong, 0.60, false, 90, 0.8, "VWAP reclaim", ""},
	{3, 9, 10, domain.SessionLondon, "Breakout", domain.DirectionLong, 0.72, false, -100, -1.0, "false break of range high", "entered before candle close"},
	{3, 15, 20, domain.SessionNewYork, "Momentum", domain.DirectionLong, 0.71, false, -80, -0.7, "momentum stalled at resistance", ""},
	{3, 16, 40, domain.SessionNewYork, "Momentum", domain.DirectionShort, 0.63, false, -110, -1.0, "short squeeze", "no stop discipline"},
	{4, 2, 50, domain.SessionAsian, "MeanReversion", domain.DirectionLong, 0.79, false, -100, -1.0, "range fade", ""},
	{4, 3, 30, domain.SessionAsian, "MeanReversion", domain.DirectionLong, 0.65, false, -95, -0.9, "second fade attempt", "revenge trade"},
	{4, 9, 20, domain.SessionLondon, "Breakout", domain.DirectionLong, 0.80, false, 260, 2.2, "clean breakout on volume", ""},
	{4, 10, 40, domain.SessionLondon, "Breakout", domain.DirectionLong, 0.77, false, 190, 1.6, "retest entry", ""},
	{4, 15, 0, domain.SessionNewYork, "Momentum", domain.DirectionLong, 0.73, false, 140, 1.2, "NY impulse", ""},
	{4, 16, 0, domain.SessionNewYork, "Breakout", domain.DirectionShort, 0.68, false, 110, 0.9, "late session breakdown", ""},
	{4, 19, 0, domain.SessionNewYork, "Momentum", domain.DirectionLong, 0.64, true, 0, 0, "swing hold into close", ""},
	{4, 20, 0, "", "Breakout", domain.DirectionLong, 0.50, true, 0, 0, "manual entry, no session tag", ""},
}

// DemoTrades builds the demo journal for the week starting at weekStart (UTC day).
func DemoTrades(weekStart time.Time) []*domain.TradeRecord {
	base := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, time.UTC)

	trades := make([]*domain.TradeRecord, 0, len(demoTrades))
	for i, d := range demoTrades {
		entry := base.AddDate(0, 0, d.day).Add(time.Duration(d.hour)*time.Hour + time.Duration(d.min)*time.Minute)
		price := 2600 + float64(i)*3.5
		t := &domain.TradeRecord{
			TradeID:      fmt.Sprintf("DEMO-%s-%03d", base.Format("20060102"), i+1),
			AgentID:      "demo-agent",
			Timestamp:    entry,
			Symbol:       "XAUUSD",
			Direction:    d.direction,
			PositionSize: 0.1,
			Strategy:     d.strategy,
			Confidence:   d.conf,
			Reasoning:    d.reasoning,
			Market: domain.MarketContext{
				Price:      price,
				Volatility: 11.5,
				Session:    d.session,
				Indicators: map[string]float64{"atr": 11.5},
			},
		}
		if !d.open {
			r := d.r
			move := d.pnl / 10
			if d.direction == domain.DirectionShort {
				move = -move
			}
			t = t.Closed(entry.Add(50*time.Minute), price+move, d.pnl, &r, "closed by plan")
			t.Lessons = d.lesson
		}
		trades = append(trades, t)
	}
	return trades
}

// LoadFixtures inserts the demo journal for the week starting at weekStart.
func LoadFixtures(ctx context.Context, tradeStore storage.TradeRecordStore, weekStart time.Time) (int, error) {
	trades := DemoTrades(weekStart)
	if err := tradeStore.InsertBulk(ctx, trades); err != nil {
		return 0, fmt.Errorf("insert demo trades: %w", err)
	}
	return len(trades), nil
}

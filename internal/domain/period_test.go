package domain

import (
	"testing"
	"time"
)

func TestPeriodIDs(t *testing.T) {
	day := time.Date(2026, 2, 23, 15, 4, 0, 0, time.UTC)

	tests := []struct {
		name   string
		period Period
		id     string
		header string
		label  string
	}{
		{"daily", DailyPeriod(day), "2026-02-23", "=== DAILY SUMMARY: 2026-02-23 ===", "TOMORROW:"},
		{"weekly", WeeklyPeriod(day), "2026-02-17 to 2026-02-23", "=== WEEKLY SUMMARY: 2026-02-17 to 2026-02-23 ===", "NEXT WEEK:"},
		{"monthly", MonthlyPeriod(2026, time.February), "2026-02", "=== MONTHLY SUMMARY: 2026-02 ===", "NEXT MONTH:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.period.ID(); got != tt.id {
				t.Errorf("ID() = %q, want %q", got, tt.id)
			}
			if got := tt.period.Header(); got != tt.header {
				t.Errorf("Header() = %q, want %q", got, tt.header)
			}
			if got := tt.period.ForwardLabel(); got != tt.label {
				t.Errorf("ForwardLabel() = %q, want %q", got, tt.label)
			}
		})
	}
}

func TestPeriodContains(t *testing.T) {
	p := WeeklyPeriod(time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC))

	if !p.Contains(time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)) {
		t.Error("week should contain its first day")
	}
	if !p.Contains(time.Date(2026, 2, 23, 23, 59, 0, 0, time.UTC)) {
		t.Error("week should contain the end of its last day")
	}
	if p.Contains(time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC)) {
		t.Error("week should not contain the following day")
	}
	if p.Contains(time.Date(2026, 2, 16, 23, 59, 0, 0, time.UTC)) {
		t.Error("week should not contain the previous day")
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(PeriodMonthly, "2026-12")
	if err != nil {
		t.Fatalf("ParsePeriod failed: %v", err)
	}
	if p.End != time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("monthly end = %v", p.End)
	}

	if _, err := ParsePeriod(PeriodDaily, "23/02/2026"); err == nil {
		t.Error("expected error for malformed date")
	}
	if _, err := ParsePeriod("yearly", "2026"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestTradeRecordValidate(t *testing.T) {
	entry := time.Date(2026, 2, 23, 8, 0, 0, 0, time.UTC)
	open := &TradeRecord{
		TradeID:    "T-1",
		Timestamp:  entry,
		Symbol:     "XAUUSD",
		Direction:  DirectionLong,
		Confidence: 0.7,
	}
	if err := open.Validate(); err != nil {
		t.Fatalf("open trade should be valid: %v", err)
	}

	closed := open.Closed(entry.Add(90*time.Minute), 2010, 25, nil, "target hit")
	if err := closed.Validate(); err != nil {
		t.Fatalf("closed trade should be valid: %v", err)
	}
	if *closed.HoldMinutes != 90 {
		t.Errorf("HoldMinutes = %d, want 90", *closed.HoldMinutes)
	}
	if open.IsClosed() {
		t.Error("Closed must not mutate the receiver")
	}

	backwards := open.Closed(entry.Add(-time.Minute), 2010, 25, nil, "")
	if err := backwards.Validate(); err == nil {
		t.Error("expected error for exit before entry")
	}

	bad := *open
	bad.Confidence = 1.2
	if err := bad.Validate(); err == nil {
		t.Error("expected error for confidence out of range")
	}
}

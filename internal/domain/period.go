package domain

import (
	"fmt"
	"time"
)

// PeriodKind is the reporting cadence.
type PeriodKind string

const (
	PeriodDaily   PeriodKind = "daily"
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
)

const dateLayout = "2006-01-02"

// Period is a half-open UTC interval [Start, End) reported on as a unit.
type Period struct {
	Kind  PeriodKind
	Start time.Time
	End   time.Time
}

// DailyPeriod returns the UTC day containing date.
func DailyPeriod(date time.Time) Period {
	d := truncateDay(date)
	return Period{Kind: PeriodDaily, Start: d, End: d.AddDate(0, 0, 1)}
}

// WeeklyPeriod returns the seven days ending on (and including) weekEnding.
func WeeklyPeriod(weekEnding time.Time) Period {
	end := truncateDay(weekEnding).AddDate(0, 0, 1)
	return Period{Kind: PeriodWeekly, Start: end.AddDate(0, 0, -7), End: end}
}

// MonthlyPeriod returns the calendar month.
func MonthlyPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Kind: PeriodMonthly, Start: start, End: start.AddDate(0, 1, 0)}
}

// ParsePeriod builds a period from its kind and a reference string:
// a date for daily and weekly (the week's last day), YYYY-MM for monthly.
func ParsePeriod(kind PeriodKind, ref string) (Period, error) {
	switch kind {
	case PeriodDaily, PeriodWeekly:
		d, err := time.Parse(dateLayout, ref)
		if err != nil {
			return Period{}, fmt.Errorf("parse %s period %q: %w", kind, ref, err)
		}
		if kind == PeriodDaily {
			return DailyPeriod(d), nil
		}
		return WeeklyPeriod(d), nil
	case PeriodMonthly:
		m, err := time.Parse("2006-01", ref)
		if err != nil {
			return Period{}, fmt.Errorf("parse monthly period %q: %w", ref, err)
		}
		return MonthlyPeriod(m.Year(), m.Month()), nil
	default:
		return Period{}, fmt.Errorf("unknown period kind %q", kind)
	}
}

// ID is the identifier printed in report headers.
//
//	daily:   2026-02-23
//	weekly:  2026-02-17 to 2026-02-23
//	monthly: 2026-02
func (p Period) ID() string {
	switch p.Kind {
	case PeriodWeekly:
		return p.Start.Format(dateLayout) + " to " + p.LastDay().Format(dateLayout)
	case PeriodMonthly:
		return p.Start.Format("2006-01")
	default:
		return p.Start.Format(dateLayout)
	}
}

// Key is a filename-safe form of ID.
func (p Period) Key() string {
	switch p.Kind {
	case PeriodWeekly:
		return "week_" + p.LastDay().Format(dateLayout)
	default:
		return p.ID()
	}
}

// LastDay returns the final calendar day inside the period.
func (p Period) LastDay() time.Time {
	return p.End.AddDate(0, 0, -1)
}

// Contains reports whether t falls inside [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Title is the header label, e.g. "DAILY SUMMARY".
func (p Period) Title() string {
	switch p.Kind {
	case PeriodWeekly:
		return "WEEKLY SUMMARY"
	case PeriodMonthly:
		return "MONTHLY SUMMARY"
	default:
		return "DAILY SUMMARY"
	}
}

// Header is the first line of a report for this period.
func (p Period) Header() string {
	return fmt.Sprintf("=== %s: %s ===", p.Title(), p.ID())
}

// ForwardLabel is the forward-plan section label, e.g. "TOMORROW:".
func (p Period) ForwardLabel() string {
	switch p.Kind {
	case PeriodWeekly:
		return "NEXT WEEK:"
	case PeriodMonthly:
		return "NEXT MONTH:"
	default:
		return "TOMORROW:"
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

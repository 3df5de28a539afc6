// Package billingperiod models the two billing period shapes used on
// invoices: a calendar month ("2025-01") and an explicit date range
// ("2025-01-15 to 2025-02-14") for utility cycles that do not align to
// calendar months.
package billingperiod

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the period variants.
type Kind string

const (
	KindMonth Kind = "month"
	KindRange Kind = "range"
)

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
	rangeSep    = " to "
)

var (
	ErrInvalidPeriod = errors.New("invalid_period")
	ErrInvalidRange  = errors.New("invalid_period_range")
)

// Period is a tagged variant: either a calendar month or a date range.
type Period struct {
	Kind  Kind
	Year  int
	Month time.Month
	Start time.Time
	End   time.Time
}

// MonthOf builds a calendar-month period.
func MonthOf(year int, month time.Month) Period {
	return Period{Kind: KindMonth, Year: year, Month: month}
}

// RangeOf builds a date-range period. Start and end are truncated to dates.
func RangeOf(start, end time.Time) Period {
	return Period{Kind: KindRange, Start: dateOnly(start), End: dateOnly(end)}
}

// Parse accepts "YYYY-MM" or "YYYY-MM-DD to YYYY-MM-DD".
func Parse(raw string) (Period, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Period{}, ErrInvalidPeriod
	}

	if strings.Contains(raw, rangeSep) {
		parts := strings.SplitN(raw, rangeSep, 2)
		start, err := time.ParseInLocation(dateLayout, strings.TrimSpace(parts[0]), time.UTC)
		if err != nil {
			return Period{}, ErrInvalidPeriod
		}
		end, err := time.ParseInLocation(dateLayout, strings.TrimSpace(parts[1]), time.UTC)
		if err != nil {
			return Period{}, ErrInvalidPeriod
		}
		if end.Before(start) {
			return Period{}, ErrInvalidRange
		}
		return RangeOf(start, end), nil
	}

	month, err := time.ParseInLocation(monthLayout, raw, time.UTC)
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	return MonthOf(month.Year(), month.Month()), nil
}

// String renders the canonical persisted form.
func (p Period) String() string {
	switch p.Kind {
	case KindMonth:
		return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
	case KindRange:
		return p.Start.Format(dateLayout) + rangeSep + p.End.Format(dateLayout)
	default:
		return ""
	}
}

// Label renders the human-facing form, e.g. "Jan 2025" or
// "Jan 15, 2025 - Feb 14, 2025".
func (p Period) Label() string {
	switch p.Kind {
	case KindMonth:
		return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
	case KindRange:
		return p.Start.Format("Jan 2, 2006") + " - " + p.End.Format("Jan 2, 2006")
	default:
		return ""
	}
}

// Next returns the following billing period.
//
// For a month, the month increments with year rollover at December. For a
// range, both bounds advance one calendar month; a bound that sits on the
// last day of its month lands on the last day of the next month (Jan 31 ->
// Feb 28/29, never Mar 3), and other days clamp to the next month's length.
func (p Period) Next() Period {
	switch p.Kind {
	case KindMonth:
		year, month := p.Year, p.Month+1
		if month > time.December {
			year, month = year+1, time.January
		}
		return MonthOf(year, month)
	case KindRange:
		return RangeOf(addOneMonth(p.Start), addOneMonth(p.End))
	default:
		return p
	}
}

// addOneMonth advances a date by one calendar month without overflowing
// into the month after. time.Date with day 0 resolves to the last day of
// the previous month, which sidesteps AddDate's normalization.
func addOneMonth(d time.Time) time.Time {
	year, month, day := d.Date()

	lastOfNext := time.Date(year, month+2, 0, 0, 0, 0, 0, time.UTC)
	if isLastOfMonth(d) || day > lastOfNext.Day() {
		return lastOfNext
	}
	return time.Date(year, month+1, day, 0, 0, 0, 0, time.UTC)
}

func isLastOfMonth(d time.Time) bool {
	year, month, day := d.Date()
	return day == time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

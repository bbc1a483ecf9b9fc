package domain

import (
	"fmt"
	"time"
)

// DateOf truncates t to a calendar date at midnight UTC, keeping the
// year, month and day as seen in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextExecutionDate adds one interval to current. Month based intervals clamp
// to the last day of the target month, so Jan 31 plus one month is Feb 28
// (Feb 29 in leap years) rather than a day in March.
//
// The result depends only on current, never on the wall clock, so a late run
// does not shift the schedule.
func NextExecutionDate(current time.Time, interval RecurringInterval) (time.Time, error) {
	current = DateOf(current)
	switch interval {
	case IntervalWeekly:
		return current.AddDate(0, 0, 7), nil
	case IntervalMonthly:
		return addMonthsClamped(current, 1), nil
	case IntervalQuarterly:
		return addMonthsClamped(current, 3), nil
	case IntervalYearly:
		return addMonthsClamped(current, 12), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	// first of the target month, normalized across year boundaries
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// CompletesAfter reports whether a template whose next date would be next has
// run past its end date. A nil end date never completes.
func CompletesAfter(next time.Time, end *time.Time) bool {
	if end == nil {
		return false
	}
	return DateOf(next).After(DateOf(*end))
}

// FormatInvoiceNumber renders RE-{year}-{n}, zero padded to four digits.
func FormatInvoiceNumber(year int, n int64) string {
	return fmt.Sprintf("%s-%d-%04d", InvoiceNumberPrefix, year, n)
}

// InvoiceNumberYearPrefix is the common prefix of all numbers issued in year.
func InvoiceNumberYearPrefix(year int) string {
	return fmt.Sprintf("%s-%d-", InvoiceNumberPrefix, year)
}

// Package interval parses human-readable time intervals ("3 days",
// "2 weeks", "1 month") and performs calendar-aware date arithmetic on
// ISO YYYY-MM-DD date strings.
package interval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ErrInvalidInterval reports an interval string whose count or unit could
// not be recognized.
var ErrInvalidInterval = errors.New("invalid interval")

// Subtract returns the date that lies the given interval before date.
// The interval is "<n> <unit>" where the unit is matched by substring:
// d=day, w=week, m=month, y=year (case-insensitive, so "days", "Week"
// and "months" all work). Month and year subtraction clamps the
// day-of-month to the target month's length, so "2024-03-31" minus
// "1 month" yields "2024-02-29".
func Subtract(date, spec string) (string, error) {
	t, err := parseDate(date)
	if err != nil {
		return "", err
	}
	parts := strings.Fields(spec)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidInterval, spec)
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: bad count in %q", ErrInvalidInterval, spec)
	}
	unit := strings.ToLower(parts[1])
	var out time.Time
	switch {
	case strings.Contains(unit, "d"):
		out = t.AddDate(0, 0, -n)
	case strings.Contains(unit, "w"):
		out = t.AddDate(0, 0, -7*n)
	case strings.Contains(unit, "m"):
		out = subtractMonths(t, n)
	case strings.Contains(unit, "y"):
		out = subtractMonths(t, 12*n)
	default:
		return "", fmt.Errorf("%w: unknown unit %q (use day, week, month, year)", ErrInvalidInterval, parts[1])
	}
	return out.Format(dateLayout), nil
}

// subtractMonths moves n months back, clamping the day-of-month instead of
// letting the stdlib normalize Mar 31 - 1 month into Mar 2.
func subtractMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := y*12 + int(m) - 1 - n
	ny := total / 12
	nm := time.Month(total%12 + 1)
	if last := daysIn(ny, nm); d > last {
		d = last
	}
	return time.Date(ny, nm, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateRange returns every calendar day from start to end inclusive.
func DateRange(start, end string) ([]string, error) {
	s, err := parseDate(start)
	if err != nil {
		return nil, err
	}
	e, err := parseDate(end)
	if err != nil {
		return nil, err
	}
	var out []string
	for !s.After(e) {
		out = append(out, s.Format(dateLayout))
		s = s.AddDate(0, 0, 1)
	}
	return out, nil
}

// PrevDay returns the calendar day before date.
func PrevDay(date string) (string, error) {
	t, err := parseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -1).Format(dateLayout), nil
}

func parseDate(date string) (time.Time, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidInterval, date)
	}
	return t, nil
}

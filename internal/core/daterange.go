package core

import (
	"errors"
	"regexp"
	"time"
)

const dayLayout = "2006-01-02"

var (
	ErrInvalidDateRange = errors.New("invalid date range")

	reDateRange = regexp.MustCompile(`(?i)from\s+(\d{4}-\d{2}-\d{2})\s+to\s+(\d{4}-\d{2}-\d{2})`)
)

// DateRange bounds a query on CreatedAt. Both ends are inclusive; a nil end
// is unbounded.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Bounded reports whether either end is set.
func (r DateRange) Bounded() bool {
	return r.From != nil || r.To != nil
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// ParseDateRange looks for "from YYYY-MM-DD to YYYY-MM-DD" in text. When it
// is absent the range is unbounded. From is midnight of the first day and To
// is 23:59:59.999 of the last day, both in loc.
func ParseDateRange(text string, loc *time.Location) (DateRange, error) {
	m := reDateRange.FindStringSubmatch(text)
	if m == nil {
		return DateRange{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	from, err := time.ParseInLocation(dayLayout, m[1], loc)
	if err != nil {
		return DateRange{}, ErrInvalidDateRange
	}
	day, err := time.ParseInLocation(dayLayout, m[2], loc)
	if err != nil {
		return DateRange{}, ErrInvalidDateRange
	}
	if day.Before(from) {
		return DateRange{}, ErrInvalidDateRange
	}
	to := day.AddDate(0, 0, 1).Add(-time.Millisecond)
	return DateRange{From: &from, To: &to}, nil
}

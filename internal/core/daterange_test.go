package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDateRangeUnbounded(t *testing.T) {
	for _, in := range []string{"", "last month", "from 2025-01-01", "from 2025/01/01 to 2025/01/31"} {
		r, err := ParseDateRange(in, time.UTC)
		if err != nil {
			t.Fatalf("ParseDateRange(%q) unexpected error: %v", in, err)
		}
		if r.Bounded() {
			t.Fatalf("ParseDateRange(%q) should be unbounded, got %+v", in, r)
		}
	}
}

func TestParseDateRangeBounds(t *testing.T) {
	r, err := ParseDateRange("FROM 2025-01-01 To 2025-01-31", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantFrom := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, 1, 31, 23, 59, 59, 999000000, time.UTC)
	if !r.From.Equal(wantFrom) {
		t.Fatalf("from = %v, want %v", r.From, wantFrom)
	}
	if !r.To.Equal(wantTo) {
		t.Fatalf("to = %v, want %v", r.To, wantTo)
	}

	if !r.Contains(wantTo) {
		t.Fatal("range should include the last millisecond of the end day")
	}
	if r.Contains(wantTo.Add(time.Millisecond)) {
		t.Fatal("range should exclude end + 1ms")
	}
	if !r.Contains(wantFrom) {
		t.Fatal("range should include midnight of the start day")
	}
	if r.Contains(wantFrom.Add(-time.Millisecond)) {
		t.Fatal("range should exclude start - 1ms")
	}
}

func TestParseDateRangeLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	r, err := ParseDateRange("from 2025-02-01 to 2025-02-01", loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.From.Location() != loc {
		t.Fatalf("expected location %v, got %v", loc, r.From.Location())
	}
	if got := r.To.Sub(*r.From); got != 24*time.Hour-time.Millisecond {
		t.Fatalf("single-day range spans %v", got)
	}
}

func TestParseDateRangeInvalid(t *testing.T) {
	for _, in := range []string{
		"from 2025-13-01 to 2025-12-31",
		"from 2025-01-01 to 2025-02-30",
		"from 2025-03-01 to 2025-02-01",
	} {
		if _, err := ParseDateRange(in, time.UTC); !errors.Is(err, ErrInvalidDateRange) {
			t.Fatalf("ParseDateRange(%q) err = %v, want ErrInvalidDateRange", in, err)
		}
	}
}

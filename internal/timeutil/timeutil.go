// Package timeutil holds the wall-clock and interval arithmetic shared by the
// availability resolver and the slot generator. Rules and exceptions store
// "HH:mm" strings with no date; appointments store absolute instants. The
// bridge between the two is always the owning business's timezone.
package timeutil

import (
	"fmt"
	"sort"
	"time"
)

const hhmmLayout = "15:04"

// ParseHHMM parses a wall-clock "HH:mm" string into minutes since midnight.
func ParseHHMM(s string) (int, error) {
	t, err := time.Parse(hhmmLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinutes renders minutes since midnight as "HH:mm".
func FormatMinutes(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// OnDate places a wall-clock time (minutes since midnight) on a calendar date
// in the given location and returns the resulting instant.
func OnDate(date time.Time, minutes int, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, loc)
}

// DateOf truncates an instant to its calendar date in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DateIn places the calendar components of t at midnight in loc, ignoring
// t's own location. Use it for values that carry a bare date, like query
// parameters parsed in UTC or DATE columns: converting those as instants
// would shift the day in zones west of UTC.
func DateIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether two instants fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DateOf(a, loc).Equal(DateOf(b, loc))
}

// Interval is a half-open time interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals truly intersect.
// Touching intervals (one ends exactly where the other starts) do not.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Span is a half-open wall-clock interval [Start, End) in minutes since
// midnight.
type Span struct {
	Start int
	End   int
}

// Valid reports whether the span is non-empty and inside a single day.
func (s Span) Valid() bool {
	return s.Start >= 0 && s.End <= 24*60 && s.Start < s.End
}

// MergeSpans sorts spans and coalesces overlapping or touching ones, so a
// split shift stays two windows but duplicate rules collapse into one.
func MergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

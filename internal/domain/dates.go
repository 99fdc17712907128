package domain

import (
	"fmt"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", dateOnly}

// ParseDate accepts RFC3339, "2006-01-02 15:04:05" or "2006-01-02". With endOfDay set, a
// date-only value resolves to the last second of that day. An empty string yields the zero time.
func ParseDate(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if layout == dateOnly && endOfDay {
			parsed = parsed.Add(24*time.Hour - time.Second)
		}
		return parsed.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised date %q", ErrInvalidTransaction, raw)
}

// MonthToDate spans from the first second of now's month to the last second of now's day.
func MonthToDate(now time.Time) DateRange {
	now = now.UTC()
	return DateRange{
		From: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC),
	}
}

// StartOfDay drops the clock part of t in UTC. The zero time stays zero.
func StartOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Day spans a single calendar day in UTC.
func Day(t time.Time) DateRange {
	start := StartOfDay(t)
	return DateRange{From: start, To: start.Add(24*time.Hour - time.Second)}
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// UTCTime returns the time normalized to UTC.
func UTCTime(t time.Time) time.Time {
	return t.UTC()
}

// UTCTimePtr returns a pointer to the time normalized to UTC, or nil if the input is nil.
func UTCTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// eventTimeLayouts are the layouts accepted for string dates in skill
// responses, tried in order.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseEventTime normalizes a string date from a skill response into a
// time.Time. Layouts without an explicit zone are interpreted as UTC.
func ParseEventTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time: %q", s)
}

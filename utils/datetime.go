package utils

import (
	"strings"
	"time"
)

// dateTimeLayouts are tried in order. The first three are the form inputs
// (datetime-local, plain text, plain text with seconds); the rest are ISO 8601
// fallbacks.
var dateTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// ParseDateTime parses a submitted date/time. Values without an offset are
// read as UTC. Blank or unrecognised input yields nil rather than an error.
func ParseDateTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// FormatDateTime renders an optional timestamp as "YYYY-MM-DD HH:MM", or ""
func FormatDateTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

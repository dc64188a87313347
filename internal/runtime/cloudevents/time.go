// Package cloudevents holds the CloudEvents attribute helpers shared by the
// property coercion and the canonical message conversion.
package cloudevents

import (
	"strings"
	"time"
)

// Time format constants for CloudEvents.
const (
	// TimeFormat is the standard CloudEvents time format (RFC3339).
	TimeFormat = time.RFC3339

	// TimeFormatNano is the RFC3339 format with nanosecond precision.
	TimeFormatNano = time.RFC3339Nano
)

// fallbackFormats are tried in order after RFC3339. Producers outside the Go
// ecosystem commonly emit these for the cloudEvents_time header.
var fallbackFormats = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC1123Z,
	time.RFC1123,
	"01/02/2006 15:04:05 -07:00",
	"01/02/2006 15:04:05",
	"2006-01-02",
}

// ParseTime parses a CloudEvents time attribute. RFC3339 (with or without
// fractional seconds) is preferred; a set of common fallback layouts is
// accepted. Values without a zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(TimeFormatNano, s); err == nil {
		return t, nil
	}

	for _, format := range fallbackFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &time.ParseError{
		Layout:  TimeFormat,
		Value:   s,
		Message: ": cannot parse as CloudEvents time",
	}
}

// FormatTime formats a time value for CloudEvents.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeFormatNano)
}

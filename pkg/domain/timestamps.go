package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ISOLayout matches the millisecond UTC form written by browsers
// (e.g. 2024-03-01T08:15:00.000Z).
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FormatISO renders t in UTC using ISOLayout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO parses the timestamp forms accepted in documents.
func ParseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// EpochMillis returns s as milliseconds since the Unix epoch. Missing or
// unparsable values map to 0.
func EpochMillis(s string) int64 {
	t, ok := ParseISO(s)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}

func isoPtr(t time.Time) *string {
	s := FormatISO(t)
	return &s
}

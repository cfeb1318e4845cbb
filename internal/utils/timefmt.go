package utils

import (
	"time"
)

const (
	displayTimestampLayout = "2006-01-02 15:04"
	eventTimestampLayout   = time.RFC3339
)

// FormatTimestamp renders a modification time for tree listings in the local
// time zone. A zero time, which cache records use for unknown, renders empty.
func FormatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.In(time.Local).Format(displayTimestampLayout)
}

// FormatEventTimestamp renders a modification time for stream events in UTC.
func FormatEventTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(eventTimestampLayout)
}

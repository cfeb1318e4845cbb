package utils_test

import (
	"math"
	"testing"
	"time"

	"github.com/temirov/dirstat/internal/utils"
)

func TestFormatFileSize(t *testing.T) {
	testCases := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{name: "negative", bytes: -1, expected: "0b"},
		{name: "zero", bytes: 0, expected: "0b"},
		{name: "bytes", bytes: 512, expected: "512b"},
		{name: "one kilobyte", bytes: 1024, expected: "1kb"},
		{name: "fractional kilobyte", bytes: 1536, expected: "1.5kb"},
		{name: "ten megabytes", bytes: 10 * 1024 * 1024, expected: "10mb"},
		{name: "largest value", bytes: math.MaxInt64, expected: "8eb"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := utils.FormatFileSize(testCase.bytes)
			if result != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, result)
			}
		})
	}
}

func TestFormatItemCount(t *testing.T) {
	for count, expected := range map[int]string{0: "0 items", 1: "1 item", 12: "12 items"} {
		if result := utils.FormatItemCount(count); result != expected {
			t.Fatalf("expected %s, got %s", expected, result)
		}
	}
}

func TestFormatEventTimestamp(t *testing.T) {
	if result := utils.FormatEventTimestamp(time.Time{}); result != "" {
		t.Fatalf("expected empty timestamp, got %s", result)
	}
	value := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.FixedZone("east", 3600))
	if result := utils.FormatEventTimestamp(value); result != "2024-01-02T14:04:05Z" {
		t.Fatalf("unexpected event timestamp %s", result)
	}
}

func TestFormatTimestamp(t *testing.T) {
	location := time.Now().Location()
	testCases := []struct {
		name     string
		value    time.Time
		expected string
	}{
		{
			name:     "zero time",
			value:    time.Time{},
			expected: "",
		},
		{
			name:     "local timestamp",
			value:    time.Date(2024, time.January, 2, 15, 4, 0, 0, location),
			expected: "2024-01-02 15:04",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := utils.FormatTimestamp(testCase.value)
			if result != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, result)
			}
		})
	}
}

package cuid2

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestEncodeTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"Zero timestamp", 0, "000000"},
		{"One second", 1, "000001"},
		{"62 seconds", 62, "000010"},
		{"One minute", 60, "00000y"},
		{"One hour", 3600, "0000w4"},
		{"One day", 86400, "000MTY"},
		{"Unix epoch test", 1704067200, "1rK5iq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := encodeTimestamp(tt.seconds)
			if result != tt.expected {
				t.Errorf("encodeTimestamp(%d) = %s, want %s", tt.seconds, result, tt.expected)
			}
		})
	}

	result := encodeTimestamp(1234567890)
	for _, c := range result {
		if !strings.ContainsRune(base62Alphabet, c) {
			t.Errorf("Result contains non-base62 character: %c in %s", c, result)
		}
	}
}

func TestRandomBase62(t *testing.T) {
	length := 24
	id := randomBase62(length)

	if len(id) != length {
		t.Errorf("Generated string length = %d, want %d", len(id), length)
	}

	for _, c := range id {
		if !strings.ContainsRune(base62Alphabet, c) {
			t.Errorf("String contains non-base62 character: %c in %s", c, id)
		}
	}

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := randomBase62(length)
		if seen[id] {
			t.Errorf("Generated duplicate string: %s", id)
		}
		seen[id] = true
	}
}

func TestNewIDFormat(t *testing.T) {
	id := NewID("scan")

	if len(id) != 29 {
		t.Errorf("ID length incorrect: got %d, want 29", len(id))
	}

	matched, _ := regexp.MatchString(`^scan_[0-9A-Za-z]{24}$`, id)
	if !matched {
		t.Errorf("ID format doesn't match expected pattern: %s", id)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)

	for i := 0; i < 10000; i++ {
		id := NewID("scan")
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestNewIDTimeSortable(t *testing.T) {
	extractTimestamp := func(id string) string {
		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			return ""
		}
		return parts[1][:timestampLength]
	}

	id1 := NewID("scan")
	time.Sleep(10 * time.Millisecond)
	id2 := NewID("scan")
	time.Sleep(10 * time.Millisecond)
	id3 := NewID("scan")

	ts1, ts2, ts3 := extractTimestamp(id1), extractTimestamp(id2), extractTimestamp(id3)
	if ts1 > ts2 {
		t.Errorf("Timestamps not sorted: %s > %s", ts1, ts2)
	}
	if ts2 > ts3 {
		t.Errorf("Timestamps not sorted: %s > %s", ts2, ts3)
	}
}

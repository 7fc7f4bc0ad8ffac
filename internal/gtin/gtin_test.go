package gtin

import (
	"testing"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected PackagingLevel
	}{
		{"Each unit", "00301430957010", LevelEach},
		{"Case indicator 5", "50301430957010", LevelCase},
		{"Case indicator 2", "20301430957010", LevelCase},
		{"Case indicator 8", "80301430957010", LevelCase},
		{"Indicator 9", "90301430957010", LevelUnknown},
		{"GTIN-12 left-padded", "301430957010", LevelEach},
		{"GTIN-13 left-padded", "5301430957010", LevelEach},
		{"Non-numeric", "ABCDEF", LevelUnknown},
		{"Empty", "", LevelUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Level(tt.input); got != tt.expected {
				t.Errorf("Level(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToEPCISForm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Indicator 5 rewritten", "50301430957010", "00301430957010"},
		{"Indicator 0 untouched", "00301430957010", "00301430957010"},
		{"Indicator 2 untouched", "20301430957010", "20301430957010"},
		{"Non-numeric unchanged", "5ABC1430957010", "5ABC1430957010"},
		{"Too short unchanged", "12345", "12345"},
		{"Empty unchanged", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToEPCISForm(tt.input); got != tt.expected {
				t.Errorf("ToEPCISForm(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEquivalent(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{"Identical", "00301430957010", "00301430957010", true},
		{"Pad-only difference", "301430957010", "00301430957010", true},
		{"DataMatrix 5 vs EPCIS 0", "50301430957010", "00301430957010", true},
		{"Indicator-only difference", "20301430957010", "00301430957010", true},
		{"Scanned with check digit vs prefix+itemref", "50301439570103", "00301430957010", true},
		{"Different item reference", "00301430957010", "00301430957027", false},
		{"Different prefix", "00999990957010", "00301430957010", false},
		{"Garbage vs valid", "not-a-gtin", "00301430957010", false},
		{"Both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equivalent(tt.a, tt.b); got != tt.expected {
				t.Errorf("Equivalent(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
			// Equivalence must be symmetric
			if got := Equivalent(tt.b, tt.a); got != tt.expected {
				t.Errorf("Equivalent(%q, %q) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.expected)
			}
		})
	}
}

func TestNDC(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"US pharma GTIN", "00301430957010", "01430-9570"},
		{"Non-003 prefix", "50999430957010", ""},
		{"Too short", "12345", ""},
		{"Non-numeric", "003ABCDEF57010", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NDC(tt.input); got != tt.expected {
				t.Errorf("NDC(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidCheckDigit(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"00012345678905", true},
		{"00012345678904", false},
		{"123", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ValidCheckDigit(tt.input); got != tt.expected {
				t.Errorf("ValidCheckDigit(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

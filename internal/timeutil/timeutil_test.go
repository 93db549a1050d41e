package timeutil

import "testing"

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		expected string
	}{
		{"Zero", 0, "00:00:00.00"},
		{"One second", 1, "00:00:01.00"},
		{"One minute", 60, "00:01:00.00"},
		{"One hour", 3600, "01:00:00.00"},
		{"Complex time", 3661, "01:01:01.00"},
		{"90 seconds", 90, "00:01:30.00"},
		{"Fractional seconds", 30.53, "00:00:30.53"},
		{"Rounding check", 1.995, "00:00:02.00"},
		{"Hour with fraction", 3661.123, "01:01:01.12"},
		{"Negative clamps to zero", -4, "00:00:00.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatSeconds(tt.seconds)
			if result != tt.expected {
				t.Errorf("FormatSeconds(%.3f) = %s; want %s", tt.seconds, result, tt.expected)
			}
		})
	}
}

func TestClipRange(t *testing.T) {
	cuts := []int{60, 120}

	tests := []struct {
		name     string
		index    int
		cuts     []int
		total    float64
		expected string
	}{
		{"First clip", 1, cuts, 150, "00:00:00.00 → 00:01:00.00"},
		{"Middle clip", 2, cuts, 150, "00:01:00.00 → 00:02:00.00"},
		{"Last clip runs to end", 3, cuts, 150, "00:02:00.00 → 00:02:30.00"},
		{"Single clip", 1, nil, 45.5, "00:00:00.00 → 00:00:45.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClipRange(tt.index, tt.cuts, tt.total); got != tt.expected {
				t.Errorf("ClipRange(%d) = %s; want %s", tt.index, got, tt.expected)
			}
		})
	}
}

// Package timeutil formats media timestamps for terminal output.
package timeutil

import "fmt"

// FormatSeconds converts seconds to HH:MM:SS.MS.
//
// Example:
//
//	FormatSeconds(0)      // "00:00:00.00"
//	FormatSeconds(90)     // "00:01:30.00"
//	FormatSeconds(3661)   // "01:01:01.00"
//	FormatSeconds(30.53)  // "00:00:30.53"
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := seconds - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%05.2f", hours, minutes, secs)
}

// ClipRange returns the span of clip index (1-based) in a source of
// total seconds cut at cuts, e.g. "00:01:00.00 → 00:02:00.00".
// The last clip runs to total.
func ClipRange(index int, cuts []int, total float64) string {
	start, end := 0.0, total
	if index > 1 && index-2 < len(cuts) {
		start = float64(cuts[index-2])
	}
	if index-1 < len(cuts) {
		end = float64(cuts[index-1])
	}
	return fmt.Sprintf("%s → %s", FormatSeconds(start), FormatSeconds(end))
}

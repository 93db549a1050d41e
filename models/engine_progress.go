package models

import (
	"fmt"
	"time"
)

// EngineProgress tracks how far the engine is through one command run.
type EngineProgress struct {
	// Position in the input
	CurrentTime    string  // Last reported timestamp (HH:MM:SS.MS)
	CurrentSeconds float64 // CurrentTime in seconds

	// Performance metrics
	Speed float64 // Realtime multiplier (e.g., 2.34 means 2.34x realtime)
	Size  string  // Output size reported by the engine (e.g., "1024kB")

	// TotalDuration comes from the input's Duration header, or is preset
	// by the caller when known. Ratio stays 0 until it is positive.
	TotalDuration float64
	Ratio         float64 // Fraction complete (0-1), never decreases

	State     ProgressState
	StartTime time.Time
	UpdatedAt time.Time
}

// ProgressState represents the current state of an engine run.
type ProgressState string

const (
	ProgressStateQueued    ProgressState = "queued"
	ProgressStateRunning   ProgressState = "running"
	ProgressStateCompleted ProgressState = "completed"
	ProgressStateFailed    ProgressState = "failed"
)

// NewEngineProgress creates a new progress tracker.
// totalDuration may be 0 when the engine is expected to report it.
func NewEngineProgress(totalDuration float64) *EngineProgress {
	now := time.Now()
	return &EngineProgress{
		TotalDuration: totalDuration,
		State:         ProgressStateQueued,
		StartTime:     now,
		UpdatedAt:     now,
	}
}

// CalculateProgress updates Ratio from the current position in seconds.
// The ratio is clamped to [0,1] and never moves backwards.
func (ep *EngineProgress) CalculateProgress(currentSeconds float64) {
	ep.CurrentSeconds = currentSeconds
	if ep.TotalDuration > 0 {
		ratio := currentSeconds / ep.TotalDuration
		if ratio > 1 {
			ratio = 1
		}
		if ratio > ep.Ratio {
			ep.Ratio = ratio
		}
	}
	ep.UpdatedAt = time.Now()
}

// Complete marks the run finished at 100%.
func (ep *EngineProgress) Complete() {
	ep.Ratio = 1
	ep.State = ProgressStateCompleted
	ep.UpdatedAt = time.Now()
}

// Percent returns the ratio as a whole percentage, rounded down.
func (ep *EngineProgress) Percent() int {
	return int(ep.Ratio * 100)
}

// EstimatedTimeRemaining calculates ETA based on elapsed time and ratio.
func (ep *EngineProgress) EstimatedTimeRemaining() time.Duration {
	if ep.Speed <= 0 || ep.Ratio <= 0 {
		return 0
	}

	elapsed := time.Since(ep.StartTime)
	totalEstimated := time.Duration(float64(elapsed) / ep.Ratio)
	remaining := totalEstimated - elapsed

	if remaining < 0 {
		return 0
	}
	return remaining
}

// FormatSummary returns a human-readable summary of the progress
func (ep *EngineProgress) FormatSummary() string {
	return fmt.Sprintf(
		"Progress: %d%% | Speed: %.2fx | Size: %s | ETA: %s",
		ep.Percent(),
		ep.Speed,
		ep.Size,
		formatDuration(ep.EstimatedTimeRemaining()),
	)
}

// formatDuration converts a duration to a human-readable string
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "calculating..."
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	seconds = seconds % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

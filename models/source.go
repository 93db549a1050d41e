// Package models provides core data structures for the cortado system.
package models

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// VideoSource is the file a user picked for cutting.
//
// The payload is either held in memory (Data) or read lazily from Path.
// Duration is unknown until a probe fills it in with SetDuration.
//
// The orchestrator only borrows a VideoSource: it reads the bytes once to
// hand them to the engine and never modifies the payload.
type VideoSource struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Data []byte `json:"-"`

	duration      float64
	durationKnown bool
}

// NewVideoSource creates an in-memory source.
func NewVideoSource(name string, data []byte) (*VideoSource, error) {
	s := &VideoSource{Name: name, Data: data}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid video source: %w", err)
	}
	return s, nil
}

// NewVideoSourceFromFile creates a source backed by a file on disk.
// The file is not read until Bytes is called.
func NewVideoSourceFromFile(path string) (*VideoSource, error) {
	s := &VideoSource{Name: filepath.Base(path), Path: path}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid video source: %w", err)
	}
	return s, nil
}

// Validate checks that the source has a name and a payload.
//
// Returns an error if:
//   - Name is empty or whitespace-only
//   - both Data and Path are empty
//   - Path is set but does not exist
func (s *VideoSource) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if len(s.Data) == 0 && strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("source has no data and no path")
	}

	if len(s.Data) == 0 {
		if _, err := os.Stat(s.Path); err != nil {
			return fmt.Errorf("cannot access source file: %w", err)
		}
	}

	return nil
}

// Bytes returns the source payload, reading it from Path on first use.
func (s *VideoSource) Bytes() ([]byte, error) {
	if len(s.Data) > 0 {
		return s.Data, nil
	}
	if s.Path == "" {
		return nil, fmt.Errorf("source %s has no data", s.Name)
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source %s: %w", s.Name, err)
	}
	s.Data = data
	return data, nil
}

// Duration returns the probed duration in seconds and whether it is known.
func (s *VideoSource) Duration() (float64, bool) {
	return s.duration, s.durationKnown
}

// SetDuration records a probed duration.
// Negative, NaN and infinite values are rejected.
func (s *VideoSource) SetDuration(seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return fmt.Errorf("invalid duration: %v", seconds)
	}
	s.duration = seconds
	s.durationKnown = true
	return nil
}

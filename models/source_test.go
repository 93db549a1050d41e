package models

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVideoSourceValidate(t *testing.T) {
	tests := []struct {
		name          string
		source        VideoSource
		wantError     bool
		errorContains string
	}{
		{name: "in memory", source: VideoSource{Name: "a.mp4", Data: []byte("x")}},
		{name: "empty name", source: VideoSource{Data: []byte("x")}, wantError: true, errorContains: "name cannot be empty"},
		{name: "no payload", source: VideoSource{Name: "a.mp4"}, wantError: true, errorContains: "no data and no path"},
		{name: "missing file", source: VideoSource{Name: "a.mp4", Path: "/nonexistent/a.mp4"}, wantError: true, errorContains: "cannot access"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.source.Validate()
			if tt.wantError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorContains, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestVideoSource_BytesReadsLazily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.mp4")
	if err := os.WriteFile(path, []byte("payload"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	source, err := NewVideoSourceFromFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if source.Name != "movie.mp4" {
		t.Errorf("Expected name movie.mp4, got %s", source.Name)
	}
	if source.Data != nil {
		t.Error("Data should not be loaded before Bytes is called")
	}

	data, err := source.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Expected payload, got %q", data)
	}
}

func TestVideoSource_SetDuration(t *testing.T) {
	source := &VideoSource{Name: "a.mp4", Data: []byte("x")}

	if _, known := source.Duration(); known {
		t.Error("Duration should be unknown before probing")
	}

	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		if err := source.SetDuration(bad); err == nil {
			t.Errorf("Expected error for duration %v", bad)
		}
	}

	if err := source.SetDuration(150); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d, known := source.Duration(); !known || d != 150 {
		t.Errorf("Expected known duration 150, got %v (known=%v)", d, known)
	}
}

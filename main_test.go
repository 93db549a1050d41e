package main

import (
	"os"
	"path/filepath"
	"testing"

	"cortado/models"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent  int
		width    int
		expected string
	}{
		{0, 10, "[..........]   0%"},
		{50, 10, "[#####.....]  50%"},
		{100, 10, "[##########] 100%"},
		{-5, 4, "[....]   0%"},
		{150, 4, "[####] 100%"},
	}

	for _, tt := range tests {
		if got := progressBar(tt.percent, tt.width); got != tt.expected {
			t.Errorf("progressBar(%d, %d) = %q; want %q", tt.percent, tt.width, got, tt.expected)
		}
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "clips")

	a1, _ := models.NewArtifact(1, "clip_001.mp4", 60, []byte("one"))
	a2, _ := models.NewArtifact(2, "clip_002.mp4", 60, []byte("two"))

	paths, err := writeArtifacts(dir, []models.Artifact{*a1, *a2})
	if err != nil {
		t.Fatalf("writeArtifacts failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("Expected 2 paths, got %d", len(paths))
	}

	want := filepath.Join(dir, "cortado_60s_clip_002.mp4")
	if paths[1] != want {
		t.Errorf("Expected %s, got %s", want, paths[1])
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("Failed to read clip: %v", err)
	}
	if string(data) != "two" {
		t.Errorf("Unexpected clip content %q", data)
	}
}

func TestPhaseLabel(t *testing.T) {
	if phaseLabel(models.PhaseExecuting) != "Cutting" {
		t.Errorf("Unexpected label %q", phaseLabel(models.PhaseExecuting))
	}
	if phaseLabel(models.PhaseDone) != "done" {
		t.Errorf("Unexpected label %q", phaseLabel(models.PhaseDone))
	}
}

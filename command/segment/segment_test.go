package segment

import (
	"reflect"
	"strings"
	"testing"

	"cortado/planner"
)

func TestCommand_BuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		segment  int
		expected []string
	}{
		{
			name:     "three clips",
			duration: 150,
			segment:  60,
			expected: []string{
				"-i", "input.mp4",
				"-c", "copy",
				"-map", "0",
				"-f", "segment",
				"-segment_times", "60,120",
				"-reset_timestamps", "1",
				"-segment_start_number", "1",
				"clip_%03d.mp4",
			},
		},
		{
			name:     "single clip has no segment times",
			duration: 45,
			segment:  60,
			expected: []string{
				"-i", "input.mp4",
				"-c", "copy",
				"-map", "0",
				"-f", "segment",
				"-reset_timestamps", "1",
				"-segment_start_number", "1",
				"clip_%03d.mp4",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planner.Plan(tt.duration, tt.segment)
			if err != nil {
				t.Fatalf("Plan failed: %v", err)
			}

			args := NewCommand("input.mp4", plan).BuildArgs()
			if !reflect.DeepEqual(args, tt.expected) {
				t.Errorf("BuildArgs() =\n  %v\nwant\n  %v", args, tt.expected)
			}
		})
	}
}

func TestCommand_SourceExtension(t *testing.T) {
	plan, err := planner.PlanWithNaming(200, 60, planner.NamingForSource("clip", "trip.mkv"))
	if err != nil {
		t.Fatalf("PlanWithNaming failed: %v", err)
	}

	cmd := NewCommand("input.mkv", plan)
	args := cmd.BuildArgs()

	if args[len(args)-1] != "clip_%03d.mkv" {
		t.Errorf("Expected mkv pattern, got %s", args[len(args)-1])
	}
	if cmd.GetInputPath() != "input.mkv" {
		t.Errorf("Expected input.mkv, got %s", cmd.GetInputPath())
	}
	if cmd.GetOutputPath() != "clip_%03d.mkv" {
		t.Errorf("Expected clip_%%03d.mkv, got %s", cmd.GetOutputPath())
	}
}

func TestCommand_DryRun(t *testing.T) {
	plan, _ := planner.Plan(150, 60)
	dry := NewCommand("input.mp4", plan).DryRun()

	if !strings.HasPrefix(dry, "ffmpeg -i input.mp4 ") {
		t.Errorf("Expected dry run to start with ffmpeg -i input.mp4, got %s", dry)
	}
	if !strings.Contains(dry, "-segment_times 60,120") {
		t.Errorf("Expected segment times in dry run, got %s", dry)
	}
	if !strings.HasSuffix(dry, "clip_%03d.mp4") {
		t.Errorf("Expected output pattern at the end, got %s", dry)
	}
}

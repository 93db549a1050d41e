package ffmpeg

import (
	"strings"
	"testing"

	"cortado/models"
)

func TestParseLine_Duration(t *testing.T) {
	pp := NewProgressParser()
	progress := models.NewEngineProgress(0)

	pp.ParseLine("  Duration: 00:02:30.00, start: 0.000000, bitrate: 1205 kb/s", progress)
	if progress.TotalDuration != 150 {
		t.Fatalf("Expected total duration 150, got %f", progress.TotalDuration)
	}

	// A second header must not override the input's
	pp.ParseLine("  Duration: 00:00:10.00, start: 0.000000, bitrate: 1 kb/s", progress)
	if progress.TotalDuration != 150 {
		t.Errorf("Expected total duration to stay 150, got %f", progress.TotalDuration)
	}
}

func TestParseLine_StatsLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		updated   bool
		wantRatio float64
		wantSpeed float64
		wantSize  string
	}{
		{
			name:      "stats line",
			line:      "frame=  750 fps=0.0 q=-1.0 size=    2048kB time=00:01:15.00 bitrate= 223.7kbits/s speed= 150x",
			updated:   true,
			wantRatio: 0.5,
			wantSpeed: 150,
			wantSize:  "2048kB",
		},
		{
			name:      "segment muxer reports N/A size",
			line:      "frame= 1500 fps=0.0 q=-1.0 Lsize=N/A time=00:02:30.00 bitrate=N/A speed= 301x",
			updated:   true,
			wantRatio: 1,
			wantSpeed: 301,
		},
		{
			name:    "not available time",
			line:    "frame=    0 fps=0.0 q=0.0 size=N/A time=N/A bitrate=N/A speed=N/A",
			updated: false,
		},
		{
			name:    "unrelated line",
			line:    "[segment @ 0x55d5c] Opening 'clip_002.mp4' for writing",
			updated: false,
		},
		{
			name:    "empty",
			line:    "   ",
			updated: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pp := NewProgressParser()
			progress := models.NewEngineProgress(150)

			if got := pp.ParseLine(tt.line, progress); got != tt.updated {
				t.Fatalf("ParseLine() = %v, want %v", got, tt.updated)
			}
			if !tt.updated {
				return
			}
			if progress.Ratio != tt.wantRatio {
				t.Errorf("Expected ratio %f, got %f", tt.wantRatio, progress.Ratio)
			}
			if progress.Speed != tt.wantSpeed {
				t.Errorf("Expected speed %f, got %f", tt.wantSpeed, progress.Speed)
			}
			if progress.Size != tt.wantSize {
				t.Errorf("Expected size %q, got %q", tt.wantSize, progress.Size)
			}
			if progress.State != models.ProgressStateRunning {
				t.Errorf("Expected running state, got %s", progress.State)
			}
		})
	}
}

func TestStreamProgress_CarriageReturns(t *testing.T) {
	stderr := "Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'input.mp4':\n" +
		"  Duration: 00:01:40.00, start: 0.000000, bitrate: 500 kb/s\n" +
		"frame=  100 fps=0.0 q=-1.0 size=N/A time=00:00:25.00 bitrate=N/A speed=50x\r" +
		"frame=  500 fps=0.0 q=-1.0 size=N/A time=00:01:15.00 bitrate=N/A speed=75x\r" +
		"[segment @ 0x1] Opening 'clip_002.mp4' for writing\n"

	pp := NewProgressParser()
	progress := models.NewEngineProgress(0)

	var lines []string
	var ratios []float64
	err := pp.StreamProgress(strings.NewReader(stderr), progress, func(line string, updated bool) {
		lines = append(lines, line)
		if updated {
			ratios = append(ratios, progress.Ratio)
		}
	})
	if err != nil {
		t.Fatalf("StreamProgress failed: %v", err)
	}

	if len(lines) != 5 {
		t.Errorf("Expected 5 lines, got %d: %q", len(lines), lines)
	}
	if len(ratios) != 2 || ratios[0] != 0.25 || ratios[1] != 0.75 {
		t.Errorf("Expected ratios [0.25 0.75], got %v", ratios)
	}
}

func TestTimeToSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"00:00:00.00", 0},
		{"00:01:00.50", 60.5},
		{"01:00:00", 3600},
		{"-577014:32:22.77", -1},
		{"12:34", -1},
		{"aa:bb:cc", -1},
	}

	for _, tt := range tests {
		if got := timeToSeconds(tt.in); got != tt.want {
			t.Errorf("timeToSeconds(%q) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

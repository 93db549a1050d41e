// Package ffprobe provides utilities for extracting metadata from media files
// using the ffprobe command-line tool.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"cortado/models"
)

// DefaultBinary is the ffprobe executable looked up on PATH.
const DefaultBinary = "ffprobe"

// stdinSource is the ffprobe input name that reads from standard input.
const stdinSource = "pipe:0"

// Stream represents a media stream (audio, video, subtitle, etc.)
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	CodecLongName string `json:"codec_long_name"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	SampleRate    string `json:"sample_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	Duration      string `json:"duration,omitempty"`
}

// Format represents the container format information.
type Format struct {
	Filename       string `json:"filename"`
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	Duration       string `json:"duration"`
	Size           string `json:"size"`
	BitRate        string `json:"bit_rate"`
}

// ProbeResult holds the metadata ffprobe reported for one input.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// GetDuration returns the container duration in seconds.
//
// Returns an error if the duration is missing, unparsable, negative or
// not finite.
func (pr *ProbeResult) GetDuration() (float64, error) {
	if pr.Format.Duration == "" || pr.Format.Duration == "N/A" {
		return 0, fmt.Errorf("duration not available in format metadata")
	}

	duration, err := strconv.ParseFloat(pr.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration '%s': %w", pr.Format.Duration, err)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return 0, fmt.Errorf("invalid duration '%s'", pr.Format.Duration)
	}

	return duration, nil
}

// GetVideoStreams returns all video streams from the media file.
func (pr *ProbeResult) GetVideoStreams() []Stream {
	return pr.streamsOfType("video")
}

// GetAudioStreams returns all audio streams from the media file.
func (pr *ProbeResult) GetAudioStreams() []Stream {
	return pr.streamsOfType("audio")
}

// IsPlayable reports whether the input has at least one audio or video stream.
func (pr *ProbeResult) IsPlayable() bool {
	return len(pr.GetVideoStreams()) > 0 || len(pr.GetAudioStreams()) > 0
}

func (pr *ProbeResult) streamsOfType(codecType string) []Stream {
	var out []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == codecType {
			out = append(out, stream)
		}
	}
	return out
}

// commandRunner abstracts process execution so probing can be tested
// without an ffprobe binary.
type commandRunner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// execRunner runs commands via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// buildArgs returns the ffprobe arguments for input.
//
// -v error: only real errors on stderr
// -print_format json: machine-readable output
// -show_format: container duration
// -show_streams: stream list, used to reject non-media input
func buildArgs(input string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		input,
	}
}

func probe(ctx context.Context, runner commandRunner, binary string, stdin io.Reader, input string) (*ProbeResult, error) {
	stdout, stderr, err := runner.Run(ctx, stdin, binary, buildArgs(input)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffprobe cancelled: %w", ctxErr)
		}
		return nil, fmt.Errorf("ffprobe failed: %w (output: %s)", err, strings.TrimSpace(string(stderr)))
	}

	var result ProbeResult
	if err := json.Unmarshal(stdout, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}

	return &result, nil
}

// Probe analyzes a media file on disk using ffprobe from PATH.
//
// Example:
//
//	result, err := ffprobe.Probe(ctx, "/path/to/video.mp4")
//	if err != nil {
//	    return err
//	}
//	duration, _ := result.GetDuration()
func Probe(ctx context.Context, sourcePath string) (*ProbeResult, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}
	return probe(ctx, execRunner{}, DefaultBinary, nil, sourcePath)
}

// Prober measures the duration of a VideoSource.
type Prober struct {
	binary string
	runner commandRunner
}

// NewProber creates a Prober using binary, or ffprobe from PATH when empty.
func NewProber(binary string) *Prober {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Prober{binary: binary, runner: execRunner{}}
}

// ErrNoMediaStreams is returned when the input has neither audio nor video.
var ErrNoMediaStreams = errors.New("no audio or video stream")

// Probe returns the source duration in seconds.
//
// A source with a Path is probed from disk; an in-memory source is piped
// to ffprobe on stdin. The measured duration is also recorded on the
// source with SetDuration.
func (p *Prober) Probe(ctx context.Context, source *models.VideoSource) (float64, error) {
	if source == nil {
		return 0, fmt.Errorf("source cannot be nil")
	}

	var (
		result *ProbeResult
		err    error
	)
	if len(source.Data) == 0 && source.Path != "" {
		result, err = probe(ctx, p.runner, p.binary, nil, source.Path)
	} else {
		data, readErr := source.Bytes()
		if readErr != nil {
			return 0, readErr
		}
		result, err = probe(ctx, p.runner, p.binary, bytes.NewReader(data), stdinSource)
	}
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", source.Name, err)
	}

	if !result.IsPlayable() {
		return 0, fmt.Errorf("probe %s: %w", source.Name, ErrNoMediaStreams)
	}

	duration, err := result.GetDuration()
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", source.Name, err)
	}

	if err := source.SetDuration(duration); err != nil {
		return 0, fmt.Errorf("probe %s: %w", source.Name, err)
	}
	return duration, nil
}

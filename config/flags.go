package config

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// MergeFromFlags parses command-line arguments (without the program name)
// and overrides config values that were explicitly set.
//
// A single positional argument is taken as the input file when -input is
// not given.
func (c *Config) MergeFromFlags(args []string) error {
	fs := flag.NewFlagSet("cortado", flag.ContinueOnError)
	fs.Usage = printUsage

	input := fs.String("input", "", "Video file to cut")
	outputDir := fs.String("output-dir", "", "Directory for the produced clips (default: from config)")

	// Handled by LoadConfig before this function is called
	_ = fs.String("config", "", "Path to config file (default: search standard locations)")

	segmentLength := fs.Int("segment-length", -1, "Clip length in seconds (default: from config)")
	inputName := fs.String("input-name", "", "Engine file name for the source, extension appended (default: from config)")
	clipPrefix := fs.String("clip-prefix", "", "Clip file name prefix (default: from config)")

	ffmpegPath := fs.String("ffmpeg", "", "Path to the ffmpeg binary (default: PATH lookup)")
	ffprobePath := fs.String("ffprobe", "", "Path to the ffprobe binary (default: PATH lookup)")
	workDir := fs.String("work-dir", "", "Parent directory for the engine workspace (default: system temp)")

	serve := fs.Bool("serve", false, "Run the local HTTP API instead of a one-shot cut")
	port := fs.Int("port", -1, "HTTP API port (default: from config)")

	dataDir := fs.String("data-dir", "", "Directory for job history (default: from config)")
	logLevel := fs.String("log-level", "", "Log level: trace, debug, info, warn, error (default: from config)")
	verbose := fs.Bool("verbose", false, "Enable verbose logging")
	dryRun := fs.Bool("dry-run", false, "Print the cut plan and engine command without cutting")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *input != "" {
		c.Input = *input
	} else if fs.NArg() > 0 {
		c.Input = fs.Arg(0)
	}
	if *outputDir != "" {
		c.OutputDir = *outputDir
	}

	// -1 means not set
	if *segmentLength >= 0 {
		c.SegmentLength = *segmentLength
	}
	if *inputName != "" {
		c.InputName = *inputName
	}
	if *clipPrefix != "" {
		c.ClipPrefix = *clipPrefix
	}

	if *ffmpegPath != "" {
		c.FFmpegPath = *ffmpegPath
	}
	if *ffprobePath != "" {
		c.FFprobePath = *ffprobePath
	}
	if *workDir != "" {
		c.WorkDir = *workDir
	}

	if *serve {
		c.Serve = true
	}
	if *port >= 0 {
		c.Port = *port
	}

	if *dataDir != "" {
		c.DataDir = *dataDir
	}
	if *logLevel != "" {
		c.LogLevel = *logLevel
	}
	if *verbose {
		c.Verbose = true
	}
	if *dryRun {
		c.DryRun = true
	}

	return nil
}

// printUsage prints help text
func printUsage() {
	fmt.Fprintf(os.Stderr, `cortado - Cut a video into fixed-length clips without re-encoding

USAGE:
  cortado [OPTIONS] FILE
  cortado -serve [OPTIONS]

SOURCE AND OUTPUT:
  -input string
        Video file to cut (or pass it as the only argument)
  -output-dir string
        Directory for the produced clips (default: .)

CONFIGURATION:
  -config string
        Path to config file (default: search ./cortado.yaml, ~/.cortado/config.yaml, /etc/cortado/config.yaml)

CUTTING:
  -segment-length int
        Clip length in seconds (default: 60)
  -input-name string
        Engine file name for the source; the source extension is appended (default: input)
  -clip-prefix string
        Clip file name prefix, clips are PREFIX_001.ext, ... (default: clip)

ENGINE:
  -ffmpeg string
        Path to the ffmpeg binary (default: PATH lookup)
  -ffprobe string
        Path to the ffprobe binary (default: PATH lookup)
  -work-dir string
        Parent directory for the engine workspace (default: system temp)

SERVER:
  --serve
        Run the local HTTP API on 127.0.0.1 instead of a one-shot cut
  -port int
        HTTP API port (default: 8790)

STATE AND LOGGING:
  -data-dir string
        Directory for job history (default: ~/.cortado)
  -log-level string
        trace, debug, info, warn, error (default: info)
  --verbose
        Enable debug logging including engine output
  --dry-run
        Print the cut plan and engine command without cutting

EXAMPLES:
  # Cut into one-minute clips in the current directory
  cortado movie.mp4

  # 30 second clips into ./clips
  cortado -segment-length 30 -output-dir clips movie.mp4

  # Show what would be run
  cortado --dry-run movie.mp4

  # Serve the local API
  cortado --serve -port 8790

CONFIGURATION FILES:
  Config files are searched in order:
    1. ./cortado.yaml
    2. ~/.cortado/config.yaml
    3. /etc/cortado/config.yaml

  Priority: CLI flags > Config file > Defaults

`)
}

// PrintConfig writes the effective configuration to w
func (c *Config) PrintConfig(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                 Effective Configuration                  ")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	if c.Serve {
		fmt.Fprintf(w, "Mode:           serve (127.0.0.1:%d)\n", c.Port)
	} else {
		fmt.Fprintf(w, "Input:          %s\n", c.Input)
		fmt.Fprintf(w, "Output Dir:     %s\n", c.OutputDir)
	}
	fmt.Fprintf(w, "Segment Length: %d seconds\n", c.SegmentLength)

	fmt.Fprintln(w, "\nNaming:")
	fmt.Fprintf(w, "  Input Name:   %s\n", c.InputName)
	fmt.Fprintf(w, "  Clip Prefix:  %s\n", c.ClipPrefix)

	fmt.Fprintln(w, "\nEngine:")
	fmt.Fprintf(w, "  FFmpeg:       %s\n", orDefault(c.FFmpegPath, "ffmpeg (PATH)"))
	fmt.Fprintf(w, "  FFprobe:      %s\n", orDefault(c.FFprobePath, "ffprobe (PATH)"))
	fmt.Fprintf(w, "  Work Dir:     %s\n", orDefault(c.WorkDir, "system temp"))

	fmt.Fprintln(w, "\nState:")
	fmt.Fprintf(w, "  Data Dir:     %s\n", c.DataDir)
	fmt.Fprintf(w, "  Log Level:    %s\n", c.EffectiveLogLevel())
	fmt.Fprintf(w, "  Dry Run:      %v\n", c.DryRun)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

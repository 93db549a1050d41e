package config

import (
	"os"
	"path/filepath"

	"cortado/api"
	"cortado/orchestrator"
	"cortado/planner"
)

// Config holds all cortado configuration options
type Config struct {
	// Source and destination
	Input     string `yaml:"input"`      // video file to cut
	OutputDir string `yaml:"output_dir"` // where clips are written

	// Cutting
	SegmentLength int    `yaml:"segment_length"` // seconds per clip
	InputName     string `yaml:"input_name"`     // engine name of the source, extension appended
	ClipPrefix    string `yaml:"clip_prefix"`    // clips are <prefix>_001<ext>, ...

	// Engine
	FFmpegPath  string `yaml:"ffmpeg_path"`  // empty = look up on PATH
	FFprobePath string `yaml:"ffprobe_path"` // empty = look up on PATH
	WorkDir     string `yaml:"work_dir"`     // engine workspace parent, empty = system temp

	// Local HTTP surface
	Serve bool `yaml:"serve"`
	Port  int  `yaml:"port"`

	// State and logging
	DataDir  string `yaml:"data_dir"` // job history lives here
	LogLevel string `yaml:"log_level"`

	// Behavioral flags
	Verbose bool `yaml:"verbose"` // debug logging, engine output included
	DryRun  bool `yaml:"dry_run"` // plan and print the command without cutting
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Input:     "",
		OutputDir: ".",

		SegmentLength: planner.DefaultSegmentLength,
		InputName:     orchestrator.DefaultInputName,
		ClipPrefix:    planner.DefaultPrefix,

		FFmpegPath:  "",
		FFprobePath: "",
		WorkDir:     "",

		Serve: false,
		Port:  api.DefaultPort,

		DataDir:  defaultDataDir(),
		LogLevel: "info",

		Verbose: false,
		DryRun:  false,
	}
}

// Copy creates a copy of the config
func (c *Config) Copy() *Config {
	copy := *c
	return &copy
}

// EffectiveLogLevel returns the level to log at, with -verbose forcing debug.
func (c *Config) EffectiveLogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}

// HistoryPath returns the job history database file.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".cortado"
	}
	return filepath.Join(home, ".cortado")
}

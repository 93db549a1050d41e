package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig_AllLayersPriority(t *testing.T) {
	input := writeInput(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "cortado.yaml")

	yamlContent := `
segment_length: 20
clip_prefix: "part"
data_dir: "` + dir + `"
log_level: "warn"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig([]string{"-config", configPath, "-segment-length", "5", input})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// flag beats file
	if cfg.SegmentLength != 5 {
		t.Errorf("Expected flag segment length 5, got %d", cfg.SegmentLength)
	}
	// file beats default
	if cfg.ClipPrefix != "part" || cfg.LogLevel != "warn" {
		t.Errorf("Expected file values, got %s %s", cfg.ClipPrefix, cfg.LogLevel)
	}
	// default survives
	if cfg.InputName != "input" || cfg.OutputDir != "." {
		t.Errorf("Expected defaults, got %s %s", cfg.InputName, cfg.OutputDir)
	}
	if cfg.Input != input {
		t.Errorf("Expected positional input %s, got %s", input, cfg.Input)
	}
}

func TestLoadConfig_ServeWithoutInput(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "cortado.yaml")
	if err := os.WriteFile(configPath, []byte("data_dir: \""+dir+"\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig([]string{"-config=" + configPath, "--serve", "-port", "8800"})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.Serve || cfg.Port != 8800 {
		t.Errorf("Expected serve on 8800, got %v %d", cfg.Serve, cfg.Port)
	}
}

func TestLoadConfig_InvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cortado.yaml")
	if err := os.WriteFile(configPath, []byte("segment_length: 10\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := LoadConfig([]string{"-config", configPath, "-segment-length", "0", writeInput(t)})
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "segment length must be positive") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadConfig_InvalidConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configPath, []byte("segment_length: [\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := LoadConfig([]string{"-config", configPath})
	if err == nil {
		t.Fatal("Expected error for invalid config file")
	}
	if !strings.Contains(err.Error(), "failed to load config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadConfig_MissingConfigFile(t *testing.T) {
	_, err := LoadConfig([]string{"-config", "/nonexistent/cortado.yaml"})
	if err == nil {
		t.Error("Expected error for missing config file")
	}
}

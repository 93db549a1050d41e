package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"cortado/planner"
)

// Validate checks if the configuration is valid and reports every
// problem at once.
func (c *Config) Validate() error {
	var errors []string

	// A one-shot run needs a source; the server receives uploads instead
	if !c.Serve {
		if c.Input == "" {
			errors = append(errors, "input file is required")
		} else if info, err := os.Stat(c.Input); err != nil {
			errors = append(errors, fmt.Sprintf("input file does not exist: %s", c.Input))
		} else if info.IsDir() {
			errors = append(errors, fmt.Sprintf("input is a directory: %s", c.Input))
		}

		if c.OutputDir == "" {
			errors = append(errors, "output directory is required")
		}
	}

	if c.SegmentLength <= 0 {
		errors = append(errors, "segment length must be positive")
	}

	if err := validateName("input name", c.InputName); err != nil {
		errors = append(errors, err.Error())
	}
	if err := (planner.Naming{Prefix: c.ClipPrefix, Extension: planner.DefaultExtension}).Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("clip prefix: %v", err))
	}
	if c.InputName != "" && c.InputName == c.ClipPrefix {
		errors = append(errors, "input name and clip prefix must differ")
	}

	if c.Serve && (c.Port <= 0 || c.Port > 65535) {
		errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", c.Port))
	}

	if c.DataDir == "" {
		errors = append(errors, "data directory is required")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// validateName checks a bare engine file name.
func validateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if strings.ContainsAny(name, `/\%`) || strings.Contains(name, "..") {
		return fmt.Errorf("%s '%s' contains a reserved character", field, name)
	}
	return nil
}

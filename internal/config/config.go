// Package config loads gridsnap settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. Command line flags are applied last by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bananasnap/gridsnap/pkg/detect"
	"github.com/bananasnap/gridsnap/pkg/grid"
	yaml "go.yaml.in/yaml/v3"
)

// Config holds reconstruction and detection settings
type Config struct {
	RowTolerance    float64       `yaml:"row_tolerance"`
	ColumnTolerance float64       `yaml:"column_tolerance"`
	Detector        string        `yaml:"detector"`
	Language        string        `yaml:"language"`
	Model           string        `yaml:"model"`
	Whitelist       string        `yaml:"whitelist"`
	CredentialsFile string        `yaml:"credentials_file"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		RowTolerance:    grid.DefaultTolerance,
		ColumnTolerance: grid.DefaultTolerance,
		Detector:        "vision",
		Whitelist:       detect.DefaultWhitelist,
		Timeout:         detect.DefaultTimeout,
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.GridOptions().Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.RowTolerance, err = getEnvAsFloatOrDefault("GRIDSNAP_ROW_TOLERANCE", c.RowTolerance); err != nil {
		return err
	}
	if c.ColumnTolerance, err = getEnvAsFloatOrDefault("GRIDSNAP_COLUMN_TOLERANCE", c.ColumnTolerance); err != nil {
		return err
	}
	if c.Timeout, err = getEnvAsDurationOrDefault("GRIDSNAP_TIMEOUT", c.Timeout); err != nil {
		return err
	}
	c.Detector = getEnvOrDefault("GRIDSNAP_DETECTOR", c.Detector)
	c.Language = getEnvOrDefault("GRIDSNAP_LANGUAGE", c.Language)
	c.Model = getEnvOrDefault("GRIDSNAP_MODEL", c.Model)
	c.Whitelist = getEnvOrDefault("GRIDSNAP_WHITELIST", c.Whitelist)
	c.CredentialsFile = getEnvOrDefault("GOOGLE_APPLICATION_CREDENTIALS", c.CredentialsFile)
	return nil
}

// GridOptions returns the reconstruction options
func (c Config) GridOptions() grid.Options {
	return grid.Options{
		RowTolerance:    c.RowTolerance,
		ColumnTolerance: c.ColumnTolerance,
	}
}

// DetectConfig returns the detector settings
func (c Config) DetectConfig() detect.Config {
	return detect.Config{
		Detector:        c.Detector,
		Language:        c.Language,
		Model:           c.Model,
		Whitelist:       c.Whitelist,
		CredentialsFile: c.CredentialsFile,
		Timeout:         c.Timeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

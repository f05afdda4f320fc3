// Package config provides the analyzer's optional YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// InboundACL is the access list checked for externally reachable NAT
	// targets (default: outside_access_in).
	InboundACL string `yaml:"inbound_acl"`
	// Filter is a shell-style wildcard applied to object names in reports.
	Filter  string        `yaml:"filter,omitempty"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

type OutputConfig struct {
	// Format is "table" or "csv" (default: table).
	Format string `yaml:"format"`
	// File is the output path (default: stdout).
	File string `yaml:"file,omitempty"`
}

type LoggingConfig struct {
	// Level is DEBUG, INFO, WARN or ERROR (default: INFO).
	Level string `yaml:"level"`
	// File is the log path (default: stderr).
	File string `yaml:"file,omitempty"`
}

func Defaults() Config {
	return Config{
		InboundACL: "outside_access_in",
		Output:     OutputConfig{Format: "table"},
		Logging:    LoggingConfig{Level: "INFO"},
	}
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML data, applies defaults for unset fields and validates
// the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.InboundACL == "" {
		cfg.InboundACL = "outside_access_in"
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "table"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
}

func validate(cfg *Config) error {
	switch cfg.Output.Format {
	case "table", "csv":
	default:
		return fmt.Errorf("unknown output format %q", cfg.Output.Format)
	}
	switch cfg.Logging.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("unknown log level %q", cfg.Logging.Level)
	}
	return nil
}

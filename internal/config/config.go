// Package config loads the declarative check suites the rodcheck CLI
// runs against live pages.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"rodcheck/internal/session"
)

// Check types accepted in a suite.
const (
	CheckExists       = "exists"
	CheckVisible      = "visible"
	CheckGone         = "gone"
	CheckText         = "text"
	CheckTextContains = "text_contains"
	CheckValue        = "value"
	CheckTitle        = "title"
	CheckURL          = "url"
	CheckCount        = "count"
)

var knownCheckTypes = map[string]bool{
	CheckExists:       true,
	CheckVisible:      true,
	CheckGone:         true,
	CheckText:         true,
	CheckTextContains: true,
	CheckValue:        true,
	CheckTitle:        true,
	CheckURL:          true,
	CheckCount:        true,
}

// Config holds a full rodcheck run: browser settings, polling bounds,
// and the targets to verify.
type Config struct {
	Browser      session.Config `yaml:"browser"`
	ArtifactsDir string         `yaml:"artifacts_dir"`
	TimeoutMs    int            `yaml:"timeout_ms"`
	IntervalMs   int            `yaml:"interval_ms"`
	Logging      LoggingConfig  `yaml:"logging"`
	Targets      []Target       `yaml:"targets"`
}

// LoggingConfig configures CLI logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Target is one page and the checks to poll against it.
type Target struct {
	Name   string  `yaml:"name"`
	URL    string  `yaml:"url"`
	Checks []Check `yaml:"checks"`
}

// Check is one declarative polling assertion.
type Check struct {
	Type     string `yaml:"type"`
	Selector string `yaml:"selector,omitempty"`
	Want     string `yaml:"want,omitempty"` // regexp for type "url"
	Count    int    `yaml:"count,omitempty"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Browser:      session.DefaultConfig(),
		ArtifactsDir: "rodcheck-artifacts",
		TimeoutMs:    10000,
		IntervalMs:   100,
		Logging:      LoggingConfig{Level: "info"},
	}
}

// Timeout returns the polling deadline per check.
func (c Config) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Interval returns the pause between polling attempts.
func (c Config) Interval() time.Duration {
	if c.IntervalMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// Load reads a YAML suite, layering it over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects suites the runner cannot execute.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("config has no targets")
	}
	for i, target := range c.Targets {
		name := target.Name
		if name == "" {
			name = fmt.Sprintf("target[%d]", i)
		}
		if target.URL == "" {
			return fmt.Errorf("%s: url is required", name)
		}
		if len(target.Checks) == 0 {
			return fmt.Errorf("%s: no checks", name)
		}
		for j, chk := range target.Checks {
			if err := chk.validate(); err != nil {
				return fmt.Errorf("%s check[%d]: %w", name, j, err)
			}
		}
	}
	return nil
}

func (c Check) validate() error {
	if !knownCheckTypes[c.Type] {
		return fmt.Errorf("unknown check type %q", c.Type)
	}
	switch c.Type {
	case CheckTitle, CheckURL:
		if c.Want == "" {
			return fmt.Errorf("%s check needs want", c.Type)
		}
		if c.Type == CheckURL {
			if _, err := regexp.Compile(c.Want); err != nil {
				return fmt.Errorf("url pattern: %w", err)
			}
		}
	default:
		if c.Selector == "" {
			return fmt.Errorf("%s check needs selector", c.Type)
		}
		if (c.Type == CheckText || c.Type == CheckTextContains || c.Type == CheckValue) && c.Want == "" {
			return fmt.Errorf("%s check needs want", c.Type)
		}
		if c.Type == CheckCount && c.Count < 0 {
			return fmt.Errorf("count must be >= 0")
		}
	}
	return nil
}

// Package config loads and validates the optional .procrun YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deixis/procrun/runner"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = ".procrun"

// DefaultHistory is the number of runs kept in memory when unset.
const DefaultHistory = 16

// Config holds the parsed .procrun configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version     int               `yaml:"version"`
	RawLauncher string            `yaml:"launcher"`   // PATH-resolving launcher, e.g. /usr/bin/env
	RawHistory  int               `yaml:"history"`    // runs kept in memory
	JoinPipes   bool              `yaml:"join_pipes"` // default for requests that don't say
	Dir         string            `yaml:"dir"`        // default working directory
	Env         map[string]string `yaml:"env"`        // replaces the inherited environment when set
	LogLevel    string            `yaml:"log_level"`  // trace, debug, info, warn, error
}

// Launcher returns the configured launcher or the default.
func (c *Config) Launcher() string {
	if c.RawLauncher != "" {
		return c.RawLauncher
	}
	return runner.DefaultLauncher
}

// HistorySize returns the configured history size or the default.
func (c *Config) HistorySize() int {
	if c.RawHistory > 0 {
		return c.RawHistory
	}
	return DefaultHistory
}

// Runner returns a runner configured from c.
func (c *Config) Runner() *runner.Runner {
	return &runner.Runner{Launcher: c.Launcher()}
}

// Request fills in the configured defaults for a command.
// Relative directories are resolved against root.
func (c *Config) Request(root, command string, args []string) runner.Request {
	req := runner.Request{
		Command:   command,
		Args:      args,
		JoinPipes: c.JoinPipes,
		Dir:       c.Dir,
	}
	if req.Dir != "" && !filepath.IsAbs(req.Dir) && root != "" {
		req.Dir = filepath.Join(root, req.Dir)
	}
	if c.Env != nil {
		req.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			req.Env[k] = v
		}
	}
	return req
}

// LoadResult holds the parsed config and the directory it was found in.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .procrun; falls back to workspace
}

// Load reads the nearest .procrun file, walking upward from workspace.
// If none exists, a default Config rooted at workspace is returned.
func Load(workspace string) (*LoadResult, error) {
	path, err := findConfig(workspace)
	if err != nil {
		return &LoadResult{Config: &Config{}, Root: workspace}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", FileName, err)
	}
	return &LoadResult{Config: cfg, Root: filepath.Dir(path)}, nil
}

func (c *Config) validate() error {
	if c.RawLauncher != "" && !filepath.IsAbs(c.RawLauncher) {
		return fmt.Errorf("launcher %q must be an absolute path", c.RawLauncher)
	}
	if c.RawHistory < 0 {
		return fmt.Errorf("history must not be negative, got %d", c.RawHistory)
	}
	return nil
}

// findConfig walks upward from dir looking for a .procrun file.
func findConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}

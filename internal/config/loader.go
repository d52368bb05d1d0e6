package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name searched for in the
// current and home directories.
const DefaultConfigFile = ".tunguard.yaml"

// xdgConfigFile is the configuration file name inside the XDG config directory.
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the structure of the YAML configuration file. Zero values mean
// "not set" and leave the current value untouched.
type File struct {
	API               string        `yaml:"api,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	APITimeout        time.Duration `yaml:"apiTimeout,omitempty"`
	Workers           int           `yaml:"workers,omitempty"`
	UserAgent         string        `yaml:"userAgent,omitempty"`
	ViolationKeywords []string      `yaml:"violationKeywords,omitempty"`
	WebPorts          []int         `yaml:"webPorts,omitempty"`
	HTMLIndicators    []string      `yaml:"htmlIndicators,omitempty"`
	MaxErrors         int           `yaml:"maxErrors,omitempty"`
	MaxTokenAttempts  int           `yaml:"maxTokenAttempts,omitempty"`
	PageSize          int           `yaml:"pageSize,omitempty"`
	PageDelay         time.Duration `yaml:"pageDelay,omitempty"`
	MaxBodySize       int64         `yaml:"maxBodySize,omitempty"`
	Format            string        `yaml:"format,omitempty"`
	OutputDir         string        `yaml:"outputDir,omitempty"`
}

// LoadConfigFile reads and parses a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. configPath, if specified
// 2. .tunguard.yaml in the current directory
// 3. config.yaml in the XDG config directory (~/.config/tunguard)
// 4. .tunguard.yaml in the user's home directory
//
// It returns an empty string when no file is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), xdgConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// ApplyFile overlays the values set in f onto c.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	if f.API != "" {
		c.APIBase = f.API
	}
	if f.Timeout > 0 {
		c.Timeout = f.Timeout
	}
	if f.APITimeout > 0 {
		c.APITimeout = f.APITimeout
	}
	if f.Workers != 0 {
		c.Workers = f.Workers
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if len(f.ViolationKeywords) > 0 {
		c.ViolationKeywords = f.ViolationKeywords
	}
	if len(f.WebPorts) > 0 {
		c.WebPorts = f.WebPorts
	}
	if len(f.HTMLIndicators) > 0 {
		c.HTMLIndicators = f.HTMLIndicators
	}
	if f.MaxErrors != 0 {
		c.ErrorCeiling = f.MaxErrors
	}
	if f.MaxTokenAttempts != 0 {
		c.TokenAttemptCeiling = f.MaxTokenAttempts
	}
	if f.PageSize != 0 {
		c.PageSize = f.PageSize
	}
	if f.PageDelay != 0 {
		c.PageDelay = f.PageDelay
	}
	if f.MaxBodySize != 0 {
		c.MaxBodySize = f.MaxBodySize
	}
	if f.Format != "" {
		c.ReportFormat = f.Format
	}
	if f.OutputDir != "" {
		c.OutputDir = f.OutputDir
	}
}

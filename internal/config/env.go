package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment variable read by LoadEnv.
const EnvPrefix = "TUNGUARD"

// Env holds the settings that may come from the environment. The admin
// token in particular is better kept out of shell history and config files.
type Env struct {
	API       string        `envconfig:"API"`
	Token     string        `envconfig:"TOKEN"`
	Workers   int           `envconfig:"WORKERS"`
	Timeout   time.Duration `envconfig:"TIMEOUT"`
	MaxErrors int           `envconfig:"MAX_ERRORS"`
	Format    string        `envconfig:"FORMAT"`
	OutputDir string        `envconfig:"OUTPUT_DIR"`
}

// LoadEnv loads dotenvPath (if it exists) into the process environment and
// then reads the TUNGUARD_* variables. Variables already set in the
// environment win over the .env file. An empty dotenvPath skips the file.
func LoadEnv(dotenvPath string) (*Env, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// ApplyEnv overlays the values set in e onto c.
func (c *Config) ApplyEnv(e *Env) {
	if e == nil {
		return
	}
	if e.API != "" {
		c.APIBase = e.API
	}
	if t := strings.TrimSpace(e.Token); t != "" {
		c.Token = t
	}
	if e.Workers != 0 {
		c.Workers = e.Workers
	}
	if e.Timeout != 0 {
		c.Timeout = e.Timeout
	}
	if e.MaxErrors != 0 {
		c.ErrorCeiling = e.MaxErrors
	}
	if e.Format != "" {
		c.ReportFormat = e.Format
	}
	if e.OutputDir != "" {
		c.OutputDir = e.OutputDir
	}
}

package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths and
	// environment variable prefixes.
	AppName = "tunguard"

	// DefaultTimeout is the per-probe HTTP timeout. Tunnels that do not
	// answer within this window are recorded with a probe error.
	DefaultTimeout = 8 * time.Second

	// DefaultAPITimeout is the timeout for each admin API page request.
	DefaultAPITimeout = 15 * time.Second

	// DefaultVerifyTimeout is the timeout for the token verification call.
	DefaultVerifyTimeout = 10 * time.Second

	// DefaultTaskMargin is added to Timeout to bound a whole classification
	// task, so a hung task is abandoned shortly after its probe should have
	// given up.
	DefaultTaskMargin = 2 * time.Second

	// DefaultWorkers is the number of tunnels classified concurrently.
	DefaultWorkers = 5

	// DefaultErrorCeiling is the number of recoverable failures after which
	// the run is aborted.
	DefaultErrorCeiling = 5

	// DefaultTokenAttemptCeiling is how many times the operator may enter
	// an invalid admin token before the process exits.
	DefaultTokenAttemptCeiling = 5

	// DefaultPageSize is the number of tunnels requested per admin API page.
	DefaultPageSize = 10

	// DefaultPageDelay spaces consecutive admin API page requests.
	DefaultPageDelay = 1 * time.Second

	// DefaultMaxBodySize limits how much of a probed page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent is sent with every probe. A desktop browser string
	// keeps tunnel backends from serving bot-specific pages.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

	// DefaultReportFormat is the report format written when none is requested.
	DefaultReportFormat = FormatXLSX

	// DefaultOutputDir is where report files are written.
	DefaultOutputDir = "."
)

// Report formats.
const (
	FormatXLSX     = "xlsx"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// SupportedFormats lists the report formats accepted by Validate.
var SupportedFormats = []string{FormatXLSX, FormatMarkdown, FormatJSON}

// DefaultViolationKeywords are the prohibited keywords searched for in
// probed pages: pornography, gambling, firearms, illegal, private game
// servers and game cheats.
func DefaultViolationKeywords() []string {
	return []string{"色情", "赌博", "枪支", "违法", "私服", "外挂"}
}

// DefaultWebPorts are local ports that usually host a web service. A tcp
// tunnel on one of these ports is probed even though it is not declared
// as http.
func DefaultWebPorts() []int {
	return []int{80, 8080, 8000, 443, 8888, 9000}
}

// DefaultHTMLIndicators are substrings whose presence in a lower-cased
// body marks the response as a web page.
func DefaultHTMLIndicators() []string {
	return []string{"<html", "<head", "<body", "<title", "<meta"}
}

// Config holds all configuration options for an audit run.
// It is populated once at startup and passed down explicitly.
type Config struct {
	// APIBase is the admin endpoint that lists tunnels, including any fixed
	// query such as "?status=online". Paging parameters are appended.
	APIBase string

	// Token is the admin token sent in the Authorization header.
	Token string

	// Timeout is the per-probe HTTP timeout.
	Timeout time.Duration

	// APITimeout is the timeout for each admin API page request.
	APITimeout time.Duration

	// VerifyTimeout is the timeout for the token verification request.
	VerifyTimeout time.Duration

	// TaskMargin is added to Timeout to bound one classification task.
	TaskMargin time.Duration

	// Workers is the size of the classification worker pool.
	Workers int

	// UserAgent is the User-Agent header sent with probes.
	UserAgent string

	// ViolationKeywords are matched case-insensitively against probed bodies.
	ViolationKeywords []string

	// WebPorts are local ports that make a tcp tunnel worth probing.
	WebPorts []int

	// HTMLIndicators mark a body as HTML.
	HTMLIndicators []string

	// ErrorCeiling is the error budget for the whole run.
	ErrorCeiling int

	// TokenAttemptCeiling is the number of token prompts before giving up.
	TokenAttemptCeiling int

	// PageSize is the admin API page size.
	PageSize int

	// PageDelay spaces consecutive admin API page requests.
	PageDelay time.Duration

	// MaxBodySize limits how much of a probed body is read.
	MaxBodySize int64

	// ReportFormat is one of SupportedFormats.
	ReportFormat string

	// OutputDir is where the report file is created.
	OutputDir string

	// Verbose enables debug logging.
	Verbose bool

	// PauseOnExit waits for Enter before the process exits, for operators
	// who launch the tool by double-clicking it.
	PauseOnExit bool

	// ConfigFilePath is an explicitly requested configuration file.
	ConfigFilePath string
}

// NewConfig creates a Config populated with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:             DefaultTimeout,
		APITimeout:          DefaultAPITimeout,
		VerifyTimeout:       DefaultVerifyTimeout,
		TaskMargin:          DefaultTaskMargin,
		Workers:             DefaultWorkers,
		UserAgent:           DefaultUserAgent,
		ViolationKeywords:   DefaultViolationKeywords(),
		WebPorts:            DefaultWebPorts(),
		HTMLIndicators:      DefaultHTMLIndicators(),
		ErrorCeiling:        DefaultErrorCeiling,
		TokenAttemptCeiling: DefaultTokenAttemptCeiling,
		PageSize:            DefaultPageSize,
		PageDelay:           DefaultPageDelay,
		MaxBodySize:         DefaultMaxBodySize,
		ReportFormat:        DefaultReportFormat,
		OutputDir:           DefaultOutputDir,
	}
}

// TaskTimeout returns the upper bound for one classification task.
func (c *Config) TaskTimeout() time.Duration {
	return c.Timeout + c.TaskMargin
}

// XDGConfigDir returns the XDG config directory for tunguard.
// On Linux: ~/.config/tunguard
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIBase) == "" {
		return ErrNoAPIBase
	}
	if c.Timeout <= 0 || c.APITimeout <= 0 || c.VerifyTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.TaskMargin < 0 {
		return ErrInvalidTaskMargin
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.ErrorCeiling <= 0 {
		return ErrInvalidErrorCeiling
	}
	if c.TokenAttemptCeiling <= 0 {
		return ErrInvalidTokenAttempts
	}
	if c.PageSize <= 0 {
		return ErrInvalidPageSize
	}
	if c.PageDelay < 0 {
		return ErrInvalidPageDelay
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if len(c.HTMLIndicators) == 0 {
		return ErrNoHTMLIndicators
	}
	for _, p := range c.WebPorts {
		if p < 1 || p > 65535 {
			return ErrInvalidWebPort
		}
	}
	if !slices.Contains(SupportedFormats, c.ReportFormat) {
		return ErrUnsupportedFormat
	}
	return nil
}

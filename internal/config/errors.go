package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoAPIBase is returned when no admin API endpoint is configured.
	ErrNoAPIBase = errors.New("no admin API endpoint: use --api, TUNGUARD_API or the config file")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidTaskMargin is returned when the task margin is negative.
	ErrInvalidTaskMargin = errors.New("invalid task margin: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidErrorCeiling is returned when the error budget is not positive.
	ErrInvalidErrorCeiling = errors.New("invalid error ceiling: must be positive")

	// ErrInvalidTokenAttempts is returned when the token attempt ceiling is not positive.
	ErrInvalidTokenAttempts = errors.New("invalid token attempt ceiling: must be positive")

	// ErrInvalidPageSize is returned when the admin API page size is not positive.
	ErrInvalidPageSize = errors.New("invalid page size: must be positive")

	// ErrInvalidPageDelay is returned when the page delay is negative.
	ErrInvalidPageDelay = errors.New("invalid page delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the probe body limit is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrNoHTMLIndicators is returned when the HTML indicator list is empty,
	// which would make every tunnel look like a non-web service.
	ErrNoHTMLIndicators = errors.New("no HTML indicators configured")

	// ErrInvalidWebPort is returned when a web port is outside 1-65535.
	ErrInvalidWebPort = errors.New("invalid web port: must be between 1 and 65535")

	// ErrUnsupportedFormat is returned for an unknown report format.
	ErrUnsupportedFormat = errors.New("unsupported report format: use xlsx, markdown or json")
)

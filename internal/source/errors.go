package source

import "errors"

var (
	// ErrInvalidToken is returned by Verify when the admin API rejects the token.
	ErrInvalidToken = errors.New("invalid admin token")

	// ErrUnexpectedStatus is returned when the admin API answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrAPIFailure is returned when the admin API answers with a code other than 200.
	ErrAPIFailure = errors.New("admin API reported failure")

	// ErrInvalidBaseURL is returned when the configured endpoint cannot be parsed.
	ErrInvalidBaseURL = errors.New("invalid admin API URL")
)

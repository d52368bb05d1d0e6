package pipeline

import "errors"

var (
	// ErrTaskTimeout is recorded when a classification task misses its deadline.
	ErrTaskTimeout = errors.New("classification task timed out")

	// ErrTaskPanic is recorded when a classification task panics.
	ErrTaskPanic = errors.New("classification task panicked")
)

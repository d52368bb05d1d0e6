package classify

import "errors"

// ErrClassification wraps a panic recovered while classifying a tunnel.
var ErrClassification = errors.New("classification failed")

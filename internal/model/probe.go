package model

// ProbeResult is the outcome of a single content probe against a tunnel's
// public address. It is produced fresh for every probe and never stored.
type ProbeResult struct {
	// IsWeb is true when the response body looks like an HTML document.
	IsWeb bool `json:"isWeb"`

	// IsViolation is true when the body contains at least one prohibited keyword.
	IsViolation bool `json:"isViolation"`

	// StatusCode is the final HTTP status after redirects, 0 on network failure.
	StatusCode int `json:"statusCode,omitempty"`

	// Evidence holds human-readable notes in the order they were found.
	Evidence []string `json:"evidence,omitempty"`

	// Error describes a network-level failure. Empty on success.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the probe could not reach the address.
func (p ProbeResult) Failed() bool {
	return p.Error != ""
}

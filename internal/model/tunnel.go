package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedRecord is returned by TunnelRecord.Validate when a field the
// classifier depends on is missing.
var ErrMalformedRecord = errors.New("malformed tunnel record")

// ProxyType is the protocol category a tunnel was registered with.
type ProxyType string

// Proxy types the classifier distinguishes. Every other value is treated
// as an opaque non-web protocol (udp, stcp, xtcp, ...).
const (
	ProxyTypeHTTP  ProxyType = "http"
	ProxyTypeHTTPS ProxyType = "https"
	ProxyTypeTCP   ProxyType = "tcp"
)

// Normalize returns the lower-cased, trimmed form of the proxy type.
func (p ProxyType) Normalize() ProxyType {
	return ProxyType(strings.ToLower(strings.TrimSpace(string(p))))
}

// IsHTTP reports whether the proxy type is http or https.
func (p ProxyType) IsHTTP() bool {
	n := p.Normalize()
	return n == ProxyTypeHTTP || n == ProxyTypeHTTPS
}

// String returns the normalized proxy type.
func (p ProxyType) String() string {
	return string(p.Normalize())
}

// LooseString decodes a JSON string or number into its textual form.
// The admin API is inconsistent about whether ids and ports are quoted,
// so both encodings are accepted. null decodes to the empty string.
type LooseString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = LooseString(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*s = LooseString(num.String())
	return nil
}

// String returns the raw text.
func (s LooseString) String() string {
	return string(s)
}

// Int parses the value as a base-10 integer.
func (s LooseString) Int() (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(s)))
}

// TunnelRecord is a single tunnel as returned by the admin API.
// Records are never modified after they are fetched.
type TunnelRecord struct {
	// ID is the tunnel identifier assigned by the admin system.
	ID LooseString `json:"id"`

	// Username is the owner of the tunnel.
	Username string `json:"username"`

	// ProxyType is the declared protocol (http, https, tcp, ...).
	ProxyType ProxyType `json:"proxy_type"`

	// Link is the publicly reachable address. It may or may not carry a scheme.
	Link string `json:"link"`

	// Domain is the custom domain bound to the tunnel, if any.
	Domain string `json:"domain"`

	// LocalPort is the port of the exposed service on the client side.
	LocalPort LooseString `json:"local_port"`
}

// Validate checks that the fields required for classification are present.
func (r TunnelRecord) Validate() error {
	switch {
	case strings.TrimSpace(r.ID.String()) == "":
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	case r.ProxyType.Normalize() == "":
		return fmt.Errorf("%w: tunnel %s: missing proxy_type", ErrMalformedRecord, r.ID)
	case strings.TrimSpace(r.Link) == "":
		return fmt.Errorf("%w: tunnel %s: missing link", ErrMalformedRecord, r.ID)
	}
	return nil
}

// BoundDomain returns the trimmed domain.
func (r TunnelRecord) BoundDomain() string {
	return strings.TrimSpace(r.Domain)
}

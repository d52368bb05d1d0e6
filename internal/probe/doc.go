// Package probe fetches a tunnel's public address and inspects the
// response body.
//
// A probe is a single HTTP GET that follows redirects and does not verify
// TLS certificates: tunnel backends commonly serve self-signed or mismatched
// certificates, and the audit needs to see their content regardless. The
// body is decoded to UTF-8 using the response charset, case-folded, and
// matched against HTML indicator substrings and the prohibited keyword list.
//
// Probe never returns an error. Network failures are reported in
// ProbeResult.Error so that one unreachable tunnel never affects the rest
// of the audit.
package probe

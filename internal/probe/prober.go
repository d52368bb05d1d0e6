package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/cases"

	"github.com/nao1215/tunguard/internal/config"
	"github.com/nao1215/tunguard/internal/model"
)

// Default prober settings, shared with the configuration defaults.
const (
	defaultTimeout     = config.DefaultTimeout
	defaultMaxBodySize = config.DefaultMaxBodySize
	defaultUserAgent   = config.DefaultUserAgent
)

// Prober performs content probes. It is safe for concurrent use.
type Prober struct {
	client         *http.Client
	userAgent      string
	timeout        time.Duration
	maxBodySize    int64
	keywords       []string
	htmlIndicators []string
}

// Option configures a Prober.
type Option func(*Prober)

// WithUserAgent sets the User-Agent header sent with probes.
func WithUserAgent(ua string) Option {
	return func(p *Prober) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithTimeout sets the overall timeout of one probe, redirects included.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithMaxBodySize limits how many bytes of the body are inspected.
func WithMaxBodySize(size int64) Option {
	return func(p *Prober) {
		if size > 0 {
			p.maxBodySize = size
		}
	}
}

// WithKeywords sets the prohibited keywords. Keywords are case-folded and
// de-duplicated; their order is kept so evidence is deterministic.
func WithKeywords(keywords []string) Option {
	return func(p *Prober) {
		p.keywords = normalize(keywords)
	}
}

// WithHTMLIndicators sets the substrings that mark a body as HTML.
func WithHTMLIndicators(indicators []string) Option {
	return func(p *Prober) {
		p.htmlIndicators = normalize(indicators)
	}
}

// WithHTTPClient replaces the HTTP client. The client's own timeout and
// TLS settings are used unchanged.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		p.client = client
	}
}

// New creates a Prober. Without WithHTTPClient it builds a client that
// skips certificate verification, honors proxy environment variables and
// follows up to 10 redirects.
func New(opts ...Option) *Prober {
	p := &Prober{
		userAgent:      defaultUserAgent,
		timeout:        defaultTimeout,
		maxBodySize:    defaultMaxBodySize,
		htmlIndicators: normalize(config.DefaultHTMLIndicators()),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		p.client = newInsecureClient(p.timeout)
	}
	return p
}

func newInsecureClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // Probes must see content behind self-signed certificates
	}
	transport.DisableKeepAlives = true

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Keywords returns the normalized keyword list.
func (p *Prober) Keywords() []string {
	return append([]string(nil), p.keywords...)
}

// Probe fetches target and inspects its body.
func (p *Prober) Probe(ctx context.Context, target string) model.ProbeResult {
	result := model.ProbeResult{Evidence: make([]string, 0)}

	body, status, err := p.fetch(ctx, target)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result
	}
	result.StatusCode = status

	content := fold(body)

	for _, indicator := range p.htmlIndicators {
		if strings.Contains(content, indicator) {
			result.IsWeb = true
			result.Evidence = append(result.Evidence, fmt.Sprintf("web page detected (status %d)", status))
			break
		}
	}

	for _, kw := range p.keywords {
		if strings.Contains(content, kw) {
			result.IsViolation = true
			result.Evidence = append(result.Evidence, "prohibited keyword: "+kw)
		}
	}

	return result
}

// fetch performs the GET and returns the UTF-8 decoded body.
func (p *Prober) fetch(ctx context.Context, target string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, p.maxBodySize)

	// Pages behind Chinese-language tunnels are frequently GBK or Big5.
	// Keywords are UTF-8, so the body must be decoded before matching.
	reader, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = limited
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("reading body: %w", err)
	}
	return string(data), resp.StatusCode, nil
}

// fold case-folds s. Body and search terms must go through the same
// mapping; lower-casing is context sensitive (Greek final sigma) and
// would let a literal keyword miss itself. A cases.Caser keeps state
// between calls, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

func normalize(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = fold(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/tunguard/internal/budget"
	"github.com/nao1215/tunguard/internal/config"
	"github.com/nao1215/tunguard/internal/model"
)

// Default client settings, shared with the configuration defaults.
const (
	DefaultPageSize      = config.DefaultPageSize
	DefaultPageDelay     = config.DefaultPageDelay
	DefaultAPITimeout    = config.DefaultAPITimeout
	DefaultVerifyTimeout = config.DefaultVerifyTimeout

	// maxResponseSize bounds a single admin API response.
	maxResponseSize = 10 * 1024 * 1024
)

// PageFunc is called after each successfully fetched page with the page
// number, the reported page count and the number of records collected so far.
type PageFunc func(page, totalPages, collected int)

// Client talks to the admin API.
type Client struct {
	base          *url.URL
	token         string
	httpClient    *http.Client
	pageSize      int
	pageDelay     time.Duration
	apiTimeout    time.Duration
	verifyTimeout time.Duration
	budget        *budget.Budget
	logger        *slog.Logger
	onPage        PageFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for admin API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPageSize sets the number of tunnels requested per page.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithPageDelay sets the minimum spacing between page requests.
// Zero disables pacing.
func WithPageDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.pageDelay = d
		}
	}
}

// WithAPITimeout sets the timeout of each page request.
func WithAPITimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.apiTimeout = d
		}
	}
}

// WithVerifyTimeout sets the timeout of the token verification request.
func WithVerifyTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.verifyTimeout = d
		}
	}
}

// WithBudget sets the error budget shared with the rest of the run.
func WithBudget(b *budget.Budget) Option {
	return func(c *Client) {
		c.budget = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithPageCallback registers a callback invoked after every fetched page.
func WithPageCallback(fn PageFunc) Option {
	return func(c *Client) {
		c.onPage = fn
	}
}

// NewClient creates a Client for the given endpoint and admin token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		base:          u,
		token:         token,
		pageSize:      DefaultPageSize,
		pageDelay:     DefaultPageDelay,
		apiTimeout:    DefaultAPITimeout,
		verifyTimeout: DefaultVerifyTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.budget == nil {
		c.budget = budget.New(budget.DefaultCeiling)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// FetchAll returns every tunnel the admin API lists, page by page.
//
// A record that cannot be decoded is skipped and counts as one failure
// in the error budget; the rest of its page is kept.
//
// A failed page ends acquisition early: the failure is recorded in the
// error budget and the records collected so far are returned. If that
// failure exhausts the budget, or the budget was already exhausted,
// FetchAll returns budget.ErrExhausted and no records.
func (c *Client) FetchAll(ctx context.Context) ([]model.TunnelRecord, error) {
	limit := rate.Inf
	if c.pageDelay > 0 {
		limit = rate.Every(c.pageDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	all := make([]model.TunnelRecord, 0)
	for page := 1; ; page++ {
		if c.budget.Exhausted() {
			return nil, budget.ErrExhausted
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.fetchPage(ctx, page, c.pageSize, c.apiTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			count, exhausted := c.budget.Record()
			c.logger.Error("failed to fetch tunnel page",
				"page", page,
				"error", err,
				"errors", count,
				"remaining", c.budget.Remaining(),
			)
			if exhausted {
				return nil, budget.ErrExhausted
			}
			c.logger.Warn("stopping acquisition early",
				"page", page,
				"collected", len(all),
			)
			return all, nil
		}

		if len(resp.Proxies) == 0 {
			c.logger.Info("all tunnels fetched", "total", len(all))
			return all, nil
		}

		recs, bad := resp.records()
		for _, err := range bad {
			count, exhausted := c.budget.Record()
			c.logger.Error("skipping malformed tunnel record",
				"page", page,
				"error", err,
				"errors", count,
				"remaining", c.budget.Remaining(),
			)
			if exhausted {
				return nil, budget.ErrExhausted
			}
		}
		all = append(all, recs...)
		total := resp.totalPages()
		c.logger.Debug("fetched tunnel page",
			"page", page,
			"pages", total,
			"collected", len(all),
		)
		if c.onPage != nil {
			c.onPage(page, total, len(all))
		}

		if page >= total {
			c.logger.Info("all pages fetched", "pages", total, "total", len(all))
			return all, nil
		}
	}
}

// Verify checks the admin token with a single one-record page request.
// It succeeds only when the API answers with code 200. Verification
// failures are not recorded in the error budget.
func (c *Client) Verify(ctx context.Context) error {
	if _, err := c.fetchPage(ctx, 1, 1, c.verifyTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return nil
}

// pageURL returns the endpoint with paging parameters added. Parameters
// already present on the endpoint (such as status=online) are kept.
func (c *Client) pageURL(page, pageSize int) string {
	u := *c.base
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) fetchPage(ctx context.Context, page, pageSize int, timeout time.Duration) (*pageResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(page, pageSize), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var pr pageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&pr); err != nil {
		return nil, fmt.Errorf("failed to decode page %d: %w", page, err)
	}

	if pr.Code != successCode {
		msg := pr.Msg
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%w: code %d: %s", ErrAPIFailure, pr.Code, msg)
	}
	return &pr, nil
}

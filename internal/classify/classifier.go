package classify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/nao1215/tunguard/internal/budget"
	"github.com/nao1215/tunguard/internal/config"
	"github.com/nao1215/tunguard/internal/model"
	"github.com/nao1215/tunguard/internal/probe"
)

// ipDomainPattern matches a bare dotted-quad. It does not check octet ranges.
var ipDomainPattern = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)

// Prober fetches a URL and inspects its content.
// *probe.Prober satisfies this interface.
type Prober interface {
	Probe(ctx context.Context, target string) model.ProbeResult
}

// Classifier turns tunnel records into classification results.
// It is safe for concurrent use as long as its Prober is.
type Classifier struct {
	prober   Prober
	webPorts map[int]struct{}
	budget   *budget.Budget
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithWebPorts sets the local ports that make a tcp tunnel relevant.
func WithWebPorts(ports []int) Option {
	return func(c *Classifier) {
		if len(ports) == 0 {
			return
		}
		c.webPorts = portSet(ports)
	}
}

// WithBudget sets the error budget that classification failures count against.
func WithBudget(b *budget.Budget) Option {
	return func(c *Classifier) {
		c.budget = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = l
	}
}

// WithClock replaces the function used to stamp CheckTime.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a Classifier that probes through p.
func New(p Prober, opts ...Option) *Classifier {
	c := &Classifier{
		prober:   p,
		webPorts: portSet(config.DefaultWebPorts()),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.budget == nil {
		c.budget = budget.New(budget.DefaultCeiling)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// IsIPDomain reports whether domain is a bare IPv4 literal.
func IsIPDomain(domain string) bool {
	return ipDomainPattern.MatchString(domain)
}

// Relevant reports whether rec is worth probing.
func (c *Classifier) Relevant(rec model.TunnelRecord) bool {
	switch pt := rec.ProxyType.Normalize(); {
	case pt.IsHTTP():
		return true
	case pt == model.ProxyTypeTCP && c.isWebPort(rec.LocalPort):
		return true
	}
	return rec.BoundDomain() != ""
}

func (c *Classifier) isWebPort(port model.LooseString) bool {
	n, err := port.Int()
	if err != nil {
		return false
	}
	_, ok := c.webPorts[n]
	return ok
}

// Classify probes rec and returns its verdict, or nil when the tunnel is
// not relevant or could not be classified. Failures are recorded in the
// error budget.
func (c *Classifier) Classify(ctx context.Context, rec model.TunnelRecord) (result *model.ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			c.fail(rec, fmt.Errorf("%w: panic: %v", ErrClassification, r))
			result = nil
		}
	}()

	if err := rec.Validate(); err != nil {
		c.fail(rec, err)
		return nil
	}

	if !c.Relevant(rec) {
		c.logger.Debug("skipping tunnel", "tunnel", rec.ID.String(), "proxyType", rec.ProxyType.String())
		return nil
	}

	target := probe.BuildURL(rec.Link, rec.ProxyType)
	pr := c.prober.Probe(ctx, target)

	evidence := make([]string, 0, len(pr.Evidence)+2)
	evidence = append(evidence, pr.Evidence...)

	domain := rec.BoundDomain()
	namedDomain := false
	if domain != "" {
		if IsIPDomain(domain) {
			evidence = append(evidence, "bound IP domain: "+domain)
		} else {
			namedDomain = true
			evidence = append(evidence, "bound domain: "+domain+" (needs verification)")
		}
	}

	if pr.Failed() {
		evidence = append(evidence, "probe error: "+pr.Error)
	}

	isViolation := pr.IsViolation || (rec.ProxyType.IsHTTP() && namedDomain)

	c.logger.Debug("tunnel classified",
		"tunnel", rec.ID.String(),
		"url", target,
		"violation", isViolation,
		"web", pr.IsWeb,
	)

	return &model.ClassificationResult{
		TunnelID:    rec.ID.String(),
		Username:    rec.Username,
		ProxyType:   rec.ProxyType.Normalize(),
		Link:        rec.Link,
		LocalPort:   rec.LocalPort.String(),
		Domain:      domain,
		IsViolation: isViolation,
		Evidence:    strings.Join(evidence, model.EvidenceSeparator),
		CheckTime:   c.now(),
	}
}

func (c *Classifier) fail(rec model.TunnelRecord, err error) {
	count, exhausted := c.budget.Record()
	c.logger.Error("failed to classify tunnel",
		"tunnel", rec.ID.String(),
		"error", err,
		"errors", count,
		"remaining", c.budget.Remaining(),
		"exhausted", exhausted,
	)
}

func portSet(ports []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ports))
	for _, p := range ports {
		set[p] = struct{}{}
	}
	return set
}

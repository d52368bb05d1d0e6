package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/tunguard/internal/budget"
	"github.com/nao1215/tunguard/internal/classify"
	"github.com/nao1215/tunguard/internal/config"
	tglog "github.com/nao1215/tunguard/internal/log"
	"github.com/nao1215/tunguard/internal/model"
	"github.com/nao1215/tunguard/internal/pipeline"
	"github.com/nao1215/tunguard/internal/probe"
	"github.com/nao1215/tunguard/internal/report"
	"github.com/nao1215/tunguard/internal/source"
)

// Reasons recorded on an aborted report.
const (
	reasonInterrupted = "interrupted by operator"
	reasonBudget      = "error budget exhausted"
	reasonNoData      = "no valid tunnel data"
)

// errAuditAborted is returned when the run ended without completing.
var errAuditAborted = errors.New("audit aborted")

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit every online tunnel and write a report",
		Long: `Audit lists the online tunnels from the admin API and probes each one that
may serve web content:

- http and https tunnels
- tcp tunnels whose local port is a well-known web port
- any tunnel with a bound domain

A tunnel is flagged when its page contains a prohibited keyword, or when it
is an http(s) tunnel fronting a named (non-IP) domain that needs review.

Failures while listing or probing count against an error budget
(--max-errors). When the budget runs out the audit is aborted and no
report is written.

Examples:
  # Audit with the token from TUNGUARD_TOKEN or the prompt
  tunguard audit --api "https://frp.example.com/api/v1/admin/proxies?status=online"

  # Write a markdown report into ./reports with 10 workers
  tunguard audit -f markdown -o reports -w 10

  # Keep the window open when launched from a file manager
  tunguard audit --pause`,
		Args: cobra.NoArgs,
		RunE: runAuditCmd,
	}

	addConnectionFlags(cmd)

	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of tunnels probed concurrently")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each probe")
	cmd.Flags().Int("max-errors", config.DefaultErrorCeiling,
		"Failures tolerated before the audit is aborted")
	cmd.Flags().StringP("format", "f", config.DefaultReportFormat,
		"Report format: "+strings.Join(config.SupportedFormats, ", "))
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory for the report file")
	cmd.Flags().Bool("pause", false,
		"Wait for Enter before exiting")

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := tglog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	p := newPrompter(cmd.InOrStdin(), out)
	if cfg.PauseOnExit {
		defer p.waitForEnter("\nPress Enter to close...")
	}

	printBanner(out)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := acquireToken(ctx, p, cfg.Token, cfg.TokenAttemptCeiling, newTokenVerifier(cfg, logger))
	if err != nil {
		fmt.Fprintln(out, "aborted")
		return err
	}

	runner := &auditRunner{
		cfg:    cfg,
		logger: logger,
		out:    out,
		now:    time.Now,
	}
	if _, err := runner.run(ctx, token); err != nil {
		fmt.Fprintln(out, "aborted")
		return err
	}

	fmt.Fprintln(out, "done")
	return nil
}

// newTokenVerifier returns a verifier that checks tokens against the admin API.
func newTokenVerifier(cfg *config.Config, logger *slog.Logger) tokenVerifier {
	return func(ctx context.Context, token string) error {
		client, err := source.NewClient(cfg.APIBase, token,
			source.WithVerifyTimeout(cfg.VerifyTimeout),
			source.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		if err := client.Verify(ctx); err != nil {
			logger.Debug("token rejected", "error", err)
			return err
		}
		return nil
	}
}

// printBanner prints the startup banner.
func printBanner(out io.Writer) {
	line := strings.Repeat("=", 40)
	fmt.Fprintln(out, line)
	fmt.Fprintln(out, "       tunguard | tunnel audit")
	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "  version: %s\n", getVersion())
	fmt.Fprintln(out, line)
	fmt.Fprintln(out)
}

// auditRunner holds everything one audit run needs.
type auditRunner struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	now    func() time.Time
}

// run fetches, classifies and reports. It returns the report together
// with an error wrapping errAuditAborted when the run did not complete.
func (r *auditRunner) run(ctx context.Context, token string) (*model.AuditReport, error) {
	audit := model.NewAuditReport(r.now())
	logger := r.logger.With("run", audit.RunID)
	b := budget.New(r.cfg.ErrorCeiling)

	client, err := source.NewClient(r.cfg.APIBase, token,
		source.WithPageSize(r.cfg.PageSize),
		source.WithPageDelay(r.cfg.PageDelay),
		source.WithAPITimeout(r.cfg.APITimeout),
		source.WithBudget(b),
		source.WithLogger(logger),
		source.WithPageCallback(func(page, total, collected int) {
			fmt.Fprintf(r.out, "Fetched page %d/%d (%d tunnels)\n", page, total, collected)
		}),
	)
	if err != nil {
		return audit, err
	}

	fmt.Fprintf(r.out, "Run %s: fetching tunnels...\n", audit.RunID)
	records, err := client.FetchAll(ctx)
	if err != nil {
		return r.abort(audit, err)
	}
	if len(records) == 0 {
		return r.abort(audit, errors.New(reasonNoData))
	}
	audit.TunnelCount = len(records)

	prober := probe.New(
		probe.WithUserAgent(r.cfg.UserAgent),
		probe.WithTimeout(r.cfg.Timeout),
		probe.WithMaxBodySize(r.cfg.MaxBodySize),
		probe.WithKeywords(r.cfg.ViolationKeywords),
		probe.WithHTMLIndicators(r.cfg.HTMLIndicators),
	)
	classifier := classify.New(prober,
		classify.WithWebPorts(r.cfg.WebPorts),
		classify.WithBudget(b),
		classify.WithLogger(logger),
		classify.WithClock(r.now),
	)
	orchestrator := pipeline.New(classifier,
		pipeline.WithWorkers(r.cfg.Workers),
		pipeline.WithTaskTimeout(r.cfg.TaskTimeout()),
		pipeline.WithBudget(b),
		pipeline.WithLogger(logger),
		pipeline.WithProgress(func(done, total int, rec model.TunnelRecord) {
			fmt.Fprintf(r.out, "\rProgress: %d/%d (tunnel %s)", done, total, rec.ID)
		}),
	)

	fmt.Fprintf(r.out, "Checking %d tunnels with %d workers...\n", len(records), r.cfg.Workers)
	results, err := orchestrator.Run(ctx, records)
	fmt.Fprintln(r.out)
	audit.Results = results
	if err != nil {
		return r.abort(audit, err)
	}
	audit.FinishedAt = r.now()

	summary := report.NewSummaryWriter(r.out, report.WithViolationList(r.cfg.Verbose))
	if !audit.HasResults() {
		fmt.Fprintln(r.out, "No tunnel needed recording.")
		if _, err := summary.Write(audit); err != nil {
			return audit, err
		}
		return audit, nil
	}

	// The file is rendered first; the console summary follows it.
	path, err := report.WriteFile(r.cfg.OutputDir, r.cfg.ReportFormat, audit, summary)
	if err != nil {
		return audit, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	fmt.Fprintf(r.out, "Report written to %s\n", path)
	return audit, nil
}

// abort marks audit as aborted because of cause and prints the summary.
// No report file is written for an aborted run.
func (r *auditRunner) abort(audit *model.AuditReport, cause error) (*model.AuditReport, error) {
	reason := cause.Error()
	switch {
	case errors.Is(cause, context.Canceled):
		reason = reasonInterrupted
	case errors.Is(cause, budget.ErrExhausted):
		reason = reasonBudget
	}

	audit.Abort(reason)
	audit.FinishedAt = r.now()
	r.logger.Warn("audit aborted", "run", audit.RunID, "reason", reason)

	fmt.Fprintf(r.out, "\nAudit aborted: %s\n", reason)
	_, _ = report.NewSummaryWriter(r.out).Write(audit)
	return audit, fmt.Errorf("%w: %s", errAuditAborted, reason)
}

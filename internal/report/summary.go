package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/tunguard/internal/model"
)

// summaryRule separates sections of the console summary.
var summaryRule = strings.Repeat("=", 40)

// SummaryWriter writes the console summary printed at the end of a run.
type SummaryWriter struct {
	baseWriter

	// listViolations adds one line per flagged tunnel.
	listViolations bool
}

// SummaryWriterOption configures a SummaryWriter.
type SummaryWriterOption func(*SummaryWriter)

// WithViolationList lists every flagged tunnel below the counters.
func WithViolationList(list bool) SummaryWriterOption {
	return func(w *SummaryWriter) {
		w.listViolations = list
	}
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer, opts ...SummaryWriterOption) *SummaryWriter {
	w := &SummaryWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// SummaryLine returns "checked N | violations V | needs attention A".
func SummaryLine(report *model.AuditReport) string {
	return fmt.Sprintf("checked %d | violations %d | needs attention %d",
		len(report.Results), report.ViolationCount(), report.AttentionCount())
}

// Write outputs the summary.
func (w *SummaryWriter) Write(report *model.AuditReport) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n" + summaryRule + "\n")
	sb.WriteString(" Audit summary\n")
	sb.WriteString(summaryRule + "\n")
	fmt.Fprintf(&sb, "Run:     %s\n", report.RunID)
	fmt.Fprintf(&sb, "Fetched: %d tunnel(s)\n", report.TunnelCount)
	sb.WriteString(SummaryLine(report) + "\n")

	if w.listViolations && report.ViolationCount() > 0 {
		sb.WriteString("\nViolations:\n")
		for _, res := range report.Results {
			if !res.IsViolation {
				continue
			}
			fmt.Fprintf(&sb, "  - [%s] %s (%s): %s\n",
				res.TunnelID, res.Link, orDash(res.Username), orDash(res.Evidence))
		}
	}

	if report.Aborted {
		fmt.Fprintf(&sb, "\nStatus: aborted (%s)\n", orDash(report.AbortReason))
	} else {
		sb.WriteString("\nStatus: done\n")
	}
	sb.WriteString(summaryRule + "\n")

	return io.WriteString(w.output, sb.String())
}

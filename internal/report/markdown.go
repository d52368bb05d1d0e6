package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/tunguard/internal/model"
)

// markdownTimeLayout is used for run timestamps in the markdown report.
const markdownTimeLayout = "2006-01-02 15:04:05 MST"

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for sharing audit results in issues and wikis.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeViolations(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1("Tunnel Audit Report")
	md.PlainText("")

	finished := "-"
	if !report.FinishedAt.IsZero() {
		finished = report.FinishedAt.Format(markdownTimeLayout)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.RunID + "`"},
			{"Started", report.StartedAt.Format(markdownTimeLayout)},
			{"Finished", finished},
			{"Tunnels Fetched", strconv.Itoa(report.TunnelCount)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

// statusText returns the status text based on report state.
func statusText(report *model.AuditReport) string {
	if report.Aborted {
		if report.AbortReason != "" {
			return "⚠️ Aborted - " + report.AbortReason
		}
		return "⚠️ Aborted"
	}
	return "✅ Done"
}

// writeSummary writes the counters, a pie chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Summary")
	md.PlainText("")

	violations := report.ViolationCount()
	attention := report.AttentionCount()

	md.Table(markdown.TableSet{
		Header: []string{"Result", "Count"},
		Rows: [][]string{
			{"🔍 Checked", strconv.Itoa(len(report.Results))},
			{"🔴 Violations", strconv.Itoa(violations)},
			{"🔵 Needs Attention", strconv.Itoa(attention)},
		},
	})
	md.PlainText("")

	if report.HasResults() {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Checked Tunnels"),
			piechart.WithShowData(true),
		)
		if violations > 0 {
			chart.LabelAndIntValue("Violation", uint64(violations))
		}
		if attention > 0 {
			chart.LabelAndIntValue("Needs Attention", uint64(attention))
		}

		md.PlainText("")
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case report.Aborted:
		md.Warningf("The run was aborted (%s). Results are incomplete.", orDash(report.AbortReason))
	case violations > 0:
		md.Cautionf("%d tunnel(s) flagged as violations require review.", violations)
	case report.HasResults():
		md.Note("No violations detected. Checked tunnels are listed for reference.")
	default:
		md.Tip("No tunnel needed checking.")
	}
	md.PlainText("")
}

// writeViolations writes a table of the flagged tunnels only.
func (w *MarkdownWriter) writeViolations(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Violations")
	md.PlainText("")

	rows := make([][]string, 0, report.ViolationCount())
	for _, res := range report.Results {
		if !res.IsViolation {
			continue
		}
		rows = append(rows, []string{
			cell(res.TunnelID),
			cell(res.Username),
			cell(res.Link),
			cell(orDash(res.Domain)),
			cell(orDash(res.Evidence)),
		})
	}

	if len(rows) == 0 {
		md.PlainText("No violations detected.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Tunnel ID", "Username", "Address", "Domain", "Evidence"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeResults writes every checked tunnel in collection order.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("All Checked Tunnels")
	md.PlainText("")

	if !report.HasResults() {
		md.PlainText("No tunnels were checked.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Results))
	for i, res := range report.Results {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			cell(res.TunnelID),
			cell(res.Username),
			res.ProxyType.String(),
			cell(res.Link),
			cell(res.LocalPort),
			cell(orDash(res.Domain)),
			yesNo(res.IsViolation),
			res.FormattedCheckTime(),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"No.", "Tunnel ID", "Username", "Proxy Type", "Address", "Local Port", "Domain", "Violation", "Check Time"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by tunguard*")
}

// cell escapes characters that would break a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

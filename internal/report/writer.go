package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/tunguard/internal/model"
)

// File name parts of a rendered report.
const (
	fileNamePrefix = "tunnel_audit_"
	fileTimeLayout = "20060102_150405"
)

var (
	// ErrUnsupportedFormat is returned for a report format without a writer.
	ErrUnsupportedFormat = errors.New("unsupported report format")

	// ErrNothingToWrite is returned by WriteFile when the run was aborted
	// or produced no rows.
	ErrNothingToWrite = errors.New("no results to write")
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.AuditReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.AuditReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// NewWriter returns the file writer for format.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch format {
	case "xlsx":
		return NewXLSXWriter(output), nil
	case "markdown", "md":
		return NewMarkdownWriter(output), nil
	case "json":
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Extension returns the file extension for format, without the dot.
func Extension(format string) string {
	switch format {
	case "markdown", "md":
		return "md"
	default:
		return format
	}
}

// FileName returns the report file name for a run finished at t,
// for example tunnel_audit_20251022_093000.xlsx.
func FileName(format string, t time.Time) string {
	return fileNamePrefix + t.Format(fileTimeLayout) + "." + Extension(format)
}

// WriteFile renders report into dir and returns the path of the new file.
// The report is also passed to every writer in also, after the file.
// Nothing is written for an aborted run or a run without results, and a
// file whose rendering failed is removed.
func WriteFile(dir, format string, report *model.AuditReport, also ...Writer) (path string, err error) {
	if report.Aborted || !report.HasResults() {
		return "", ErrNothingToWrite
	}
	if _, err := NewWriter(format, io.Discard); err != nil {
		return "", err
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	path = filepath.Join(dir, FileName(format, finished))

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
			path = ""
		}
	}()

	fw, err := NewWriter(format, f)
	if err != nil {
		return "", err
	}
	w := NewMultiWriter(append([]Writer{fw}, also...)...)
	if _, err := w.Write(report); err != nil {
		return "", fmt.Errorf("failed to write %s report: %w", format, err)
	}
	return path, nil
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// yesNo renders a violation flag.
func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

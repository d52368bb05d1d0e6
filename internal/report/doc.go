// Package report renders audit results.
//
// This package contains writers for different output formats:
//   - XLSXWriter: the audit spreadsheet handed to the compliance team
//   - MarkdownWriter: a shareable summary with a mermaid chart
//   - JSONWriter: structured output for tool integration
//   - SummaryWriter: the one-screen console summary
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed with MultiWriter. WriteFile creates the
// timestamped report file for a format.
package report

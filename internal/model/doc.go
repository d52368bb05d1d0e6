// Package model defines the data structures shared by the audit stages.
//
// This package contains the following main types:
//   - TunnelRecord: A tunnel as listed by the admin API
//   - ProbeResult: What a single HTTP probe observed
//   - ClassificationResult: One row of the audit report
//   - AuditReport: The outcome of a whole run
//
// Records and results are values. They are never modified after they are
// produced, so they may be passed between goroutines freely.
package model

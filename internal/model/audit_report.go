package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditReport is the outcome of one audit run. It is held in memory until
// the report writers are done with it.
type AuditReport struct {
	// RunID identifies the run in logs and rendered reports.
	RunID string `json:"runId"`

	// StartedAt is when acquisition began.
	StartedAt time.Time `json:"startedAt"`

	// FinishedAt is when the orchestrator returned.
	FinishedAt time.Time `json:"finishedAt"`

	// TunnelCount is the number of records fetched from the admin API.
	TunnelCount int `json:"tunnelCount"`

	// Results are the classified tunnels in completion order.
	Results []ClassificationResult `json:"results"`

	// Aborted is set when the run ended early (error budget, interrupt, no data).
	Aborted bool `json:"aborted"`

	// AbortReason explains why the run was aborted.
	AbortReason string `json:"abortReason,omitempty"`
}

// NewAuditReport creates an empty report stamped with a fresh run id.
func NewAuditReport(startedAt time.Time) *AuditReport {
	return &AuditReport{
		RunID:     uuid.NewString(),
		StartedAt: startedAt,
		Results:   make([]ClassificationResult, 0),
	}
}

// Abort marks the report as aborted with the given reason.
func (r *AuditReport) Abort(reason string) {
	r.Aborted = true
	r.AbortReason = reason
}

// ViolationCount returns the number of rows flagged as violations.
func (r *AuditReport) ViolationCount() int {
	n := 0
	for _, res := range r.Results {
		if res.IsViolation {
			n++
		}
	}
	return n
}

// AttentionCount returns the number of rows that were checked but not flagged.
func (r *AuditReport) AttentionCount() int {
	return len(r.Results) - r.ViolationCount()
}

// HasResults reports whether there is anything to render.
func (r *AuditReport) HasResults() bool {
	return len(r.Results) > 0
}

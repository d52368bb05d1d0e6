package model

import (
	"time"
)

// EvidenceSeparator joins evidence entries in a ClassificationResult.
// It is the full-width semicolon used by the audit team's spreadsheets.
const EvidenceSeparator = "；"

// CheckTimeLayout is the layout used when rendering CheckTime.
const CheckTimeLayout = "2006-01-02 15:04:05"

// ClassificationResult is one report row: a tunnel that was worth probing
// together with the verdict. Tunnels that are not relevant produce no row.
type ClassificationResult struct {
	TunnelID    string    `json:"tunnelId"`
	Username    string    `json:"username"`
	ProxyType   ProxyType `json:"proxyType"`
	Link        string    `json:"link"`
	LocalPort   string    `json:"localPort"`
	Domain      string    `json:"domain"`
	IsViolation bool      `json:"isViolation"`
	Evidence    string    `json:"evidence"`
	CheckTime   time.Time `json:"checkTime"`
}

// FormattedCheckTime returns CheckTime in local wall-clock form.
func (r ClassificationResult) FormattedCheckTime() string {
	return r.CheckTime.Format(CheckTimeLayout)
}

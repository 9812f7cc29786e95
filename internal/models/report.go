package models

import "time"

// DiagnosticKind tags non-fatal anomalies surfaced on a report.
type DiagnosticKind string

const (
	// DiagnosticRow marks a row-level parse problem recovered locally.
	DiagnosticRow DiagnosticKind = "row"
	// DiagnosticInput marks a corrected caller input (e.g. swapped dates).
	DiagnosticInput DiagnosticKind = "input"
)

// Diagnostic describes one recovered anomaly. A report with diagnostics is
// still a complete, consistent report.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Line    int            `json:"line,omitempty"`
	Message string         `json:"message"`
}

// Report is the immutable result of one engine invocation: the interval
// table, the per-device summary table, and the reference instant every open
// duration in both tables was measured against.
type Report struct {
	ReportID      string          `json:"report_id"`
	ReferenceTime time.Time       `json:"reference_time"`
	Intervals     []Interval      `json:"intervals"`
	Summaries     []DeviceSummary `json:"summaries"`
	Diagnostics   []Diagnostic    `json:"diagnostics,omitempty"`

	// Dashboard tiles: device counts as of the reference time.
	DeviceCount  int `json:"device_count"`
	OnlineCount  int `json:"online_count"`
	OfflineCount int `json:"offline_count"`
}

// Empty reports whether the report carries no intervals and no summaries.
func (r Report) Empty() bool {
	return len(r.Intervals) == 0 && len(r.Summaries) == 0
}

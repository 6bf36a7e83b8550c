package model

import "strings"

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

// Alert statuses.
const (
	AlertOpen     AlertStatus = "OPEN"
	AlertResolved AlertStatus = "RESOLVED"
)

// Alert is a finding raised by a backend rule or model.
type Alert struct {
	CreatedAt Timestamp   `json:"created_at"`
	AISummary *string     `json:"ai_summary"`
	AlertType string      `json:"alert_type"`
	Message   string      `json:"message"`
	Status    AlertStatus `json:"status"`
	ID        int         `json:"id"`
}

// IsOpen reports whether the alert still needs attention.
func (a Alert) IsOpen() bool {
	return strings.EqualFold(string(a.Status), string(AlertOpen))
}

// IsGraphFinding reports whether the alert came from network analysis.
func (a Alert) IsGraphFinding() bool {
	return strings.Contains(a.AlertType, "GRAPH")
}

// Summary returns the AI summary or a placeholder.
func (a Alert) Summary() string {
	if a.AISummary == nil || *a.AISummary == "" {
		return "Not available."
	}
	return *a.AISummary
}

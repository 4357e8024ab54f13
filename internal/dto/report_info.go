package dto

import (
	"encoding/json"
	"time"
)

// ClassCount is one line of a per-class summary.
type ClassCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ReportInfo describes a stored report for the dashboard.
type ReportInfo struct {
	ID          int64        `json:"id"`
	Session     string       `json:"session"`
	Filename    string       `json:"filename"`
	Source      string       `json:"source"`
	Mode        string       `json:"mode"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Total       int          `json:"total"`
	Classes     []ClassCount `json:"classes"`
	Text        string       `json:"text,omitempty"`
}

// MarshalJSON customizes JSON output for ReportInfo to format the generation time.
func (p ReportInfo) MarshalJSON() ([]byte, error) {
	type Alias ReportInfo
	return json.Marshal(&struct {
		GeneratedAt string `json:"generatedAt"`
		Alias
	}{
		GeneratedAt: p.GeneratedAt.Format("02-01-2006 15:04:05"),
		Alias:       (Alias)(p),
	})
}

package models

import "time"

// Report represents a stored session report record.
type Report struct {
	ID          int64        `json:"id"`
	SessionID   string       `json:"session_id"`
	Filename    string       `json:"filename"`
	FilePath    string       `json:"filepath"`
	Source      string       `json:"source"`
	Mode        string       `json:"mode"`
	GeneratedAt time.Time    `json:"generated_at"`
	Total       int          `json:"total"`
	Classes     []ClassCount `json:"classes"`
}

// ClassCount is the number of detections of one class in a report.
type ClassCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ReportStats contains statistics about stored reports.
type ReportStats struct {
	TotalReports    int            `json:"total_reports"`
	TotalDetections int            `json:"total_detections"`
	PerMode         map[string]int `json:"per_mode"`
	ClassTotals     []ClassCount   `json:"class_totals"`
}

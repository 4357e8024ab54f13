// Package report turns the detections of one session (a single image, a
// video file or a camera run) into a per-class tally and a plain-text report.
//
// Two ingestion modes exist. Batch mode keeps every detection and lists it
// with its confidence; live mode only keeps the running Counter. A Session
// can be finalized exactly once, and the resulting Report is written to disk
// by a Writer as report_<YYYYMMDD>_<HHMMSS>.txt.
package report

import (
	"strconv"
	"time"

	"detectlab/internal/dto"
)

// Mode tells how a report was produced.
type Mode string

const (
	// ModeBatch reports keep a line per detection.
	ModeBatch Mode = "batch"
	// ModeLive reports only keep per-class counts.
	ModeLive Mode = "live"
)

// Report is the immutable summary of one finished session.
type Report struct {
	Session     string
	Mode        Mode
	GeneratedAt time.Time
	Source      string
	Total       int
	Lines       []string
	Classes     []dto.ClassCount
}

// Count returns the count for label, or zero.
func (r Report) Count(label string) int {
	for _, c := range r.Classes {
		if c.Label == label {
			return c.Count
		}
	}
	return 0
}

// Aggregator builds reports. It holds no per-session state.
type Aggregator struct {
	now func() time.Time
}

// NewAggregator returns an Aggregator stamping reports with now; nil means time.Now.
func NewAggregator(now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{now: now}
}

// FromResults builds a batch report from already materialized frames.
// Frames without detections are skipped.
func (a *Aggregator) FromResults(results []dto.FrameResult, source string) Report {
	counter := NewCounter()
	var lines []string

	for _, frame := range results {
		for _, det := range frame.Detections {
			lines = append(lines, DetectionLine(det))
			counter.Add(det.Label)
		}
	}

	return Report{
		Mode:        ModeBatch,
		GeneratedAt: a.now(),
		Source:      source,
		Total:       len(lines),
		Lines:       lines,
		Classes:     counter.Snapshot(),
	}
}

// FromCounter builds a live report from a session counter. Per-detection
// confidences are not available in this mode.
func (a *Aggregator) FromCounter(counter *Counter, source string) Report {
	var classes []dto.ClassCount
	if counter != nil {
		classes = counter.Snapshot()
	}

	total := 0
	for _, c := range classes {
		total += c.Count
	}

	return Report{
		Mode:        ModeLive,
		GeneratedAt: a.now(),
		Source:      source,
		Total:       total,
		Classes:     classes,
	}
}

// DetectionLine formats a detection as "<label> (confidence: 0.912)".
func DetectionLine(det dto.Detection) string {
	return det.Label + " (confidence: " + strconv.FormatFloat(det.Confidence, 'f', 3, 64) + ")"
}

package report

import (
	"strconv"
	"strings"
)

const (
	timestampLayout = "2006-01-02 15:04:05"

	batchTitle = "=== Object detection report (batch) ==="
	liveTitle  = "=== Object detection report (live session) ==="

	generatedPrefix = "Generated at: "
	sourcePrefix    = "Source: "
	detailsHeader   = "Detections:"
	summaryHeader   = "Summary by class:"
	totalPrefix     = "Total detections: "
	classSeparator  = " : "

	// NoObjectsText replaces the detail and summary sections of an empty batch report.
	NoObjectsText = "No objects detected."
	// NoDetectionsText replaces the summary section of an empty live report.
	NoDetectionsText = "No detections recorded for the session."
)

// Render formats the report as text. The output only depends on r.
func Render(r Report) string {
	var b strings.Builder

	if r.Mode == ModeLive {
		b.WriteString(liveTitle)
	} else {
		b.WriteString(batchTitle)
	}
	b.WriteByte('\n')
	b.WriteString(generatedPrefix + r.GeneratedAt.Format(timestampLayout) + "\n")
	b.WriteString(sourcePrefix + singleLine(r.Source) + "\n\n")

	switch {
	case r.Total == 0 && r.Mode == ModeLive:
		b.WriteString(NoDetectionsText + "\n\n")
	case r.Total == 0:
		b.WriteString(NoObjectsText + "\n\n")
	default:
		if r.Mode != ModeLive {
			b.WriteString(detailsHeader + "\n")
			for _, line := range r.Lines {
				b.WriteString(line + "\n")
			}
			b.WriteByte('\n')
		}

		b.WriteString(summaryHeader + "\n")
		for _, c := range r.Classes {
			b.WriteString(c.Label + classSeparator + strconv.Itoa(c.Count) + "\n")
		}
		b.WriteByte('\n')
	}

	b.WriteString(totalPrefix + strconv.Itoa(r.Total) + "\n")
	return b.String()
}

// String implements fmt.Stringer.
func (r Report) String() string {
	return Render(r)
}

func singleLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

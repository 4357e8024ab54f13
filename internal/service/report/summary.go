package report

import (
	"strconv"
	"strings"

	"detectlab/internal/dto"
)

// NothingDetected is the per-frame summary of an empty frame.
const NothingDetected = "nothing detected"

// FrameSummary describes one frame as "person: 2, car: 1", in first-seen order.
func FrameSummary(frame dto.FrameResult) string {
	if len(frame.Detections) == 0 {
		return NothingDetected
	}

	counter := NewCounter()
	counter.AddFrame(frame)

	var b strings.Builder
	for i, c := range counter.Snapshot() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Label)
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(c.Count))
	}
	return b.String()
}

package report

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"detectlab/internal/dto"
)

// ErrMalformedReport is returned by Parse for text that Render did not produce.
var ErrMalformedReport = errors.New("malformed report")

// Parse reads back a report produced by Render. The session id is not part
// of the text and stays empty.
func Parse(text string) (Report, error) {
	var r Report
	scanner := bufio.NewScanner(strings.NewReader(text))

	section := ""
	haveTotal := false

	for line := 0; scanner.Scan(); line++ {
		s := scanner.Text()

		if line == 0 {
			switch s {
			case batchTitle:
				r.Mode = ModeBatch
			case liveTitle:
				r.Mode = ModeLive
			default:
				return Report{}, fmt.Errorf("%w: unknown header %q", ErrMalformedReport, s)
			}
			continue
		}

		switch {
		case s == "":
			section = ""
		case strings.HasPrefix(s, generatedPrefix) && section == "":
			ts, err := time.ParseInLocation(timestampLayout, strings.TrimPrefix(s, generatedPrefix), time.Local)
			if err != nil {
				return Report{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
			}
			r.GeneratedAt = ts
		case strings.HasPrefix(s, sourcePrefix) && section == "":
			r.Source = strings.TrimPrefix(s, sourcePrefix)
		case s == detailsHeader:
			section = "details"
		case s == summaryHeader:
			section = "summary"
		case (s == NoObjectsText || s == NoDetectionsText) && section == "":
		case strings.HasPrefix(s, totalPrefix) && section == "":
			total, err := strconv.Atoi(strings.TrimPrefix(s, totalPrefix))
			if err != nil {
				return Report{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
			}
			r.Total = total
			haveTotal = true
		case section == "details":
			r.Lines = append(r.Lines, s)
		case section == "summary":
			i := strings.LastIndex(s, classSeparator)
			if i < 0 {
				return Report{}, fmt.Errorf("%w: bad summary line %q", ErrMalformedReport, s)
			}
			count, err := strconv.Atoi(s[i+len(classSeparator):])
			if err != nil {
				return Report{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
			}
			r.Classes = append(r.Classes, dto.ClassCount{Label: s[:i], Count: count})
		default:
			return Report{}, fmt.Errorf("%w: unexpected line %q", ErrMalformedReport, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return Report{}, fmt.Errorf("failed to read report: %w", err)
	}

	if !haveTotal {
		return Report{}, fmt.Errorf("%w: missing total", ErrMalformedReport)
	}

	sum := 0
	for _, c := range r.Classes {
		sum += c.Count
	}
	if sum != r.Total || (r.Mode == ModeBatch && len(r.Lines) != r.Total) {
		return Report{}, fmt.Errorf("%w: totals do not add up", ErrMalformedReport)
	}
	return r, nil
}

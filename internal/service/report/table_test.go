package report

import (
	"strings"
	"testing"

	"detectlab/internal/dto"
)

func TestTable(t *testing.T) {
	r := Report{
		Total:   3,
		Classes: []dto.ClassCount{{Label: "cat", Count: 2}, {Label: "dog", Count: 1}},
	}

	out := Table(r)

	lines := strings.Split(out, "\n")
	var catRow, dogRow int
	for i, line := range lines {
		if strings.Contains(line, "cat") {
			catRow = i
		}
		if strings.Contains(line, "dog") {
			dogRow = i
		}
	}
	if catRow == 0 || dogRow == 0 || catRow > dogRow {
		t.Errorf("Expected cat row before dog row:\n%s", out)
	}
	if !strings.Contains(strings.ToUpper(out), "TOTAL") || !strings.Contains(out, "3") {
		t.Errorf("Expected total footer:\n%s", out)
	}
}

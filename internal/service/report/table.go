package report

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table renders the per-class summary of r as a terminal table.
func Table(r Report) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Class", "Count"})
	for i, c := range r.Classes {
		t.AppendRow(table.Row{strconv.Itoa(i + 1), c.Label, c.Count})
	}
	t.AppendFooter(table.Row{"", "Total", r.Total})
	return t.Render()
}

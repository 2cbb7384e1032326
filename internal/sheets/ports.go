// Package sheets defines the outbound port for writing report matrices to a
// spreadsheet, plus the value layout shared by its adapters.
package sheets

import (
	"context"

	"backoffice/internal/report"
)

// ReportWriter replaces the content of the tab named title with the matrix
// and returns a reference to the written range.
type ReportWriter interface {
	WriteReport(ctx context.Context, title string, m report.Matrix) (ref string, err error)
}

// Values lays out m as spreadsheet rows: a header of period labels, one row
// per category with its total, and a closing totals row. Amounts are written
// as integer pesos so the sheet can sum them.
func Values(m report.Matrix) [][]any {
	header := make([]any, 0, len(m.Periods)+2)
	header = append(header, "Categoría")
	for _, p := range m.Periods {
		header = append(header, p.Label)
	}
	header = append(header, "Total")

	out := make([][]any, 0, len(m.Rows)+2)
	out = append(out, header)
	for _, r := range m.Rows {
		row := make([]any, 0, len(header))
		row = append(row, r.Category)
		for _, p := range m.Periods {
			row = append(row, r.Amounts[p.ID].Amount)
		}
		row = append(row, m.CategoryTotals[r.Category].Amount)
		out = append(out, row)
	}

	footer := make([]any, 0, len(header))
	footer = append(footer, "Total")
	for _, p := range m.Periods {
		footer = append(footer, m.PeriodTotals[p.ID].Amount)
	}
	footer = append(footer, m.Total.Amount)
	return append(out, footer)
}

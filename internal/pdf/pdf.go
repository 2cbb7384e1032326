// Package pdf renders financial tables as printable documents.
package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"backoffice/internal/core"
	"backoffice/internal/report"
)

// MaxPeriodColumns is how many period columns fit on one landscape page.
// Wider tables continue on further pages with the category column repeated.
const MaxPeriodColumns = 12

const (
	pageWidth     = 297.0
	margin        = 10.0
	categoryWidth = 48.0
	totalWidth    = 28.0
	rowHeight     = 6.0
)

// Meta is printed in the page header.
type Meta struct {
	Organization string
	Generated    time.Time
}

// RenderFinancialTable writes t as a landscape A4 PDF to w.
func RenderFinancialTable(w io.Writer, t report.FinancialTable, meta Meta) error {
	doc := build(t, meta)
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func build(t report.FinancialTable, meta Meta) *gofpdf.Fpdf {
	doc := gofpdf.New("L", "mm", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	if meta.Generated.IsZero() {
		meta.Generated = time.Now()
	}
	doc.SetFooterFunc(func() {
		doc.SetY(-8)
		doc.SetFont("Helvetica", "I", 7)
		doc.CellFormat(0, 4, tr(fmt.Sprintf("Generado el %s · Página %d", core.FormatDate(core.Date{Time: meta.Generated}), doc.PageNo())), "", 0, "R", false, 0, "")
	})

	chunks := chunk(len(t.Periods), MaxPeriodColumns)
	if len(chunks) == 0 || t.Empty {
		chunks = [][2]int{{0, 0}}
	}
	for i, c := range chunks {
		last := i == len(chunks)-1
		doc.AddPage()
		header(doc, tr, t, meta)
		if t.Empty {
			doc.SetFont("Helvetica", "", 10)
			doc.CellFormat(0, 10, tr("Sin datos para el período seleccionado"), "", 1, "C", false, 0, "")
			continue
		}
		table(doc, tr, t, c[0], c[1], last)
	}
	return doc
}

func header(doc *gofpdf.Fpdf, tr func(string) string, t report.FinancialTable, meta Meta) {
	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 8, tr(t.Title), "", 1, "L", false, 0, "")
	if meta.Organization != "" {
		doc.SetFont("Helvetica", "", 9)
		doc.CellFormat(0, 5, tr(meta.Organization), "", 1, "L", false, 0, "")
	}
	doc.Ln(3)
}

func table(doc *gofpdf.Fpdf, tr func(string) string, t report.FinancialTable, from, to int, withTotal bool) {
	cols := to - from
	usable := pageWidth - 2*margin - categoryWidth
	if withTotal {
		usable -= totalWidth
	}
	colWidth := usable
	if cols > 0 {
		colWidth = usable / float64(cols)
	}
	fontSize := 8.0
	if cols > 8 {
		fontSize = 7
	}

	doc.SetFont("Helvetica", "B", fontSize)
	doc.SetFillColor(235, 238, 242)
	doc.CellFormat(categoryWidth, rowHeight, tr("Categoría"), "1", 0, "L", true, 0, "")
	for _, p := range t.Periods[from:to] {
		doc.CellFormat(colWidth, rowHeight, tr(p.Label), "1", 0, "C", true, 0, "")
	}
	if withTotal {
		doc.CellFormat(totalWidth, rowHeight, "Total", "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", fontSize)
	for _, r := range t.Rows {
		doc.CellFormat(categoryWidth, rowHeight, tr(r.Category), "1", 0, "L", false, 0, "")
		for _, c := range r.Cells[from:to] {
			doc.CellFormat(colWidth, rowHeight, c.Text, "1", 0, "R", false, 0, "")
		}
		if withTotal {
			badgeColor(doc, r.Badge)
			doc.CellFormat(totalWidth, rowHeight, r.Total.Text, "1", 0, "R", false, 0, "")
			doc.SetTextColor(0, 0, 0)
		}
		doc.Ln(-1)
	}

	doc.SetFont("Helvetica", "B", fontSize)
	doc.CellFormat(categoryWidth, rowHeight, "Total", "1", 0, "L", true, 0, "")
	for _, c := range t.Footer[from:to] {
		doc.CellFormat(colWidth, rowHeight, c.Text, "1", 0, "R", true, 0, "")
	}
	if withTotal {
		badgeColor(doc, t.Badge)
		doc.CellFormat(totalWidth, rowHeight, t.Total.Text, "1", 0, "R", true, 0, "")
		doc.SetTextColor(0, 0, 0)
	}
	doc.Ln(-1)

	if withTotal && t.Skipped > 0 {
		doc.Ln(2)
		doc.SetFont("Helvetica", "I", 7)
		doc.CellFormat(0, 4, tr(fmt.Sprintf("%d registros fuera de los períodos no se incluyen.", t.Skipped)), "", 1, "L", false, 0, "")
	}
}

func badgeColor(doc *gofpdf.Fpdf, s report.Severity) {
	switch s {
	case report.Success:
		doc.SetTextColor(22, 101, 52)
	case report.Warning:
		doc.SetTextColor(161, 98, 7)
	case report.Error:
		doc.SetTextColor(185, 28, 28)
	}
}

// chunk splits n columns into [from, to) ranges of at most size.
func chunk(n, size int) [][2]int {
	var out [][2]int
	for from := 0; from < n; from += size {
		to := from + size
		if to > n {
			to = n
		}
		out = append(out, [2]int{from, to})
	}
	return out
}

package report

import (
	"backoffice/internal/core"
	"backoffice/internal/pagination"
	"backoffice/internal/periods"
)

// Cell is a formatted amount.
type Cell struct {
	Amount core.Money
	Text   string
}

func cell(m core.Money) Cell {
	return Cell{Amount: m, Text: core.FormatCurrency(m)}
}

type TableRow struct {
	Category string
	Cells    []Cell
	Total    Cell
	Badge    Severity
}

// FinancialTable is the render model of a Matrix.
type FinancialTable struct {
	Title   string
	Context Context
	Periods []periods.Period
	Rows    []TableRow
	Footer  []Cell
	Total   Cell
	Badge   Severity
	Empty   bool
	Skipped int
}

// NewFinancialTable lays out m with cells in period order.
func NewFinancialTable(title string, ctx Context, m Matrix) FinancialTable {
	t := FinancialTable{
		Title:   title,
		Context: ctx,
		Periods: m.Periods,
		Total:   cell(m.Total),
		Badge:   Badge(m.Total, ctx),
		Empty:   len(m.Rows) == 0,
		Skipped: m.Skipped,
	}
	for _, r := range m.Rows {
		row := TableRow{Category: r.Category, Cells: make([]Cell, 0, len(m.Periods))}
		for _, p := range m.Periods {
			row.Cells = append(row.Cells, cell(r.Amounts[p.ID]))
		}
		total := m.CategoryTotals[r.Category]
		row.Total = cell(total)
		row.Badge = Badge(total, ctx)
		t.Rows = append(t.Rows, row)
	}
	for _, p := range m.Periods {
		t.Footer = append(t.Footer, cell(m.PeriodTotals[p.ID]))
	}
	return t
}

// RecentRow is one line of the recent transactions table.
type RecentRow struct {
	ID          int64
	Date        string
	Category    string
	Description string
	Amount      Cell
	Status      core.StatusDisplay
	Badge       Severity
}

// RecentTable is a client-paginated list of recent items.
type RecentTable struct {
	Title      string
	Rows       []RecentRow
	Page       int
	TotalPages int
	TotalItems int
	Pages      []pagination.PageItem
	HasPrev    bool
	HasNext    bool
}

// NewRecentTable paginates items in memory. Statuses are rendered through
// statusOf, which may be nil.
func NewRecentTable(title string, items []core.LineItem, page, perPage int, statusOf func(core.LineItem) core.StatusDisplay) RecentTable {
	p := pagination.Paginate(items, page, perPage)
	t := RecentTable{
		Title:      title,
		Page:       p.Page,
		TotalPages: p.TotalPages,
		TotalItems: p.TotalItems,
		Pages:      pagination.Pages(p.TotalPages, p.Page),
		HasPrev:    p.HasPrev(),
		HasNext:    p.HasNext(),
	}
	for _, it := range p.Items {
		ctx := ExpenseContext
		if it.Kind == core.Income {
			ctx = IncomeContext
		}
		status := core.StatusDisplay{Label: it.Status, Variant: core.VariantNeutral}
		if statusOf != nil {
			status = statusOf(it)
		}
		t.Rows = append(t.Rows, RecentRow{
			ID:          it.ID,
			Date:        core.FormatDate(it.Date),
			Category:    it.Category,
			Description: it.Description,
			Amount:      cell(it.Amount),
			Status:      status,
			Badge:       Badge(it.Amount, ctx),
		})
	}
	return t
}

package report

import (
	"testing"

	"backoffice/internal/core"
	"backoffice/internal/periods"
)

func money(n int64) core.Money { return core.Money{Amount: n} }

func TestPeriodTotalsIncludesEmptyPeriods(t *testing.T) {
	ps := periods.Quarters(2025)
	rows := []CategoryRow{
		{Category: "Sueldos", Amounts: map[string]core.Money{"quarter-1": money(100), "quarter-3": money(0)}},
		{Category: "Arriendo", Amounts: map[string]core.Money{"quarter-1": money(50)}},
	}
	totals := PeriodTotals(rows, ps)
	if len(totals) != 4 {
		t.Fatalf("expected every period present, got %v", totals)
	}
	if totals["quarter-1"] != money(150) || totals["quarter-2"] != money(0) || totals["quarter-3"] != money(0) {
		t.Fatalf("unexpected totals %v", totals)
	}
}

func TestTotalsAgree(t *testing.T) {
	ps := periods.Months(2025)
	rows := []CategoryRow{
		{Category: "A", Amounts: map[string]core.Money{"month-1": money(10), "month-12": money(5)}},
		{Category: "B", Amounts: map[string]core.Money{"month-6": money(7)}},
		{Category: "C", Amounts: map[string]core.Money{}},
	}
	m := NewMatrix(rows, ps)
	if m.Total != money(22) {
		t.Fatalf("unexpected total %v", m.Total)
	}
	if err := m.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if m.CategoryTotals["C"] != money(0) {
		t.Fatalf("empty row should total zero")
	}
}

func TestCheckDetectsForeignPeriods(t *testing.T) {
	rows := []CategoryRow{{Category: "A", Amounts: map[string]core.Money{"week-1": money(10)}}}
	m := NewMatrix(rows, periods.Months(2025))
	if err := m.Check(); err == nil {
		t.Fatalf("expected disagreement for amounts outside the listed periods")
	}
}

func TestBuild(t *testing.T) {
	items := []core.LineItem{
		{Category: "Sueldos", Date: core.NewDate(2025, 1, 15), Amount: money(1000)},
		{Category: "Arriendo", Date: core.NewDate(2025, 1, 20), Amount: money(300)},
		{Category: "Sueldos", Date: core.NewDate(2025, 1, 31), Amount: money(500)},
		{Category: "Sueldos", Date: core.NewDate(2025, 4, 1), Amount: money(200)},
		{Category: "", Date: core.NewDate(2025, 2, 1), Amount: money(1)},
		{Category: "Arriendo", Date: core.NewDate(2024, 12, 31), Amount: money(999)},
	}
	m := Build(items, periods.Months(2025), nil)
	if m.Skipped != 1 {
		t.Fatalf("expected one skipped item, got %d", m.Skipped)
	}
	if len(m.Rows) != 3 || m.Rows[0].Category != "Sueldos" || m.Rows[1].Category != "Arriendo" || m.Rows[2].Category != "Sin categoría" {
		t.Fatalf("rows should keep first-seen order: %+v", m.Rows)
	}
	if m.Rows[0].Amounts["month-1"] != money(1500) || m.Rows[0].Amounts["month-4"] != money(200) {
		t.Fatalf("unexpected Sueldos row %+v", m.Rows[0].Amounts)
	}
	if m.Total != money(2001) {
		t.Fatalf("unexpected total %v", m.Total)
	}
	if err := m.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestBuildWeeklySkipsDaysBeforeFirstMonday(t *testing.T) {
	items := []core.LineItem{
		{Category: "A", Date: core.NewDate(2025, 1, 2), Amount: money(10)},
		{Category: "A", Date: core.NewDate(2025, 1, 6), Amount: money(20)},
	}
	m := Build(items, periods.Weeks(2025), func(it core.LineItem) string { return "x-" + it.Category })
	if m.Skipped != 1 || m.Total != money(20) || m.Rows[0].Category != "x-A" {
		t.Fatalf("unexpected matrix %+v", m)
	}
}

func TestBadge(t *testing.T) {
	cases := []struct {
		amount int64
		ctx    Context
		want   Severity
	}{
		{1_500_000, ExpenseContext, Error},
		{1_500_000, IncomeContext, Success},
		{500_000, ExpenseContext, Warning},
		{500_000, IncomeContext, Warning},
		{50_000, IncomeContext, Error},
		{50_000, ExpenseContext, Success},
		{1_000_000, IncomeContext, Warning}, // thresholds are strict
		{100_000, ExpenseContext, Success},
	}
	for _, tc := range cases {
		if got := Badge(money(tc.amount), tc.ctx); got != tc.want {
			t.Fatalf("Badge(%d,%s) = %s, want %s", tc.amount, tc.ctx, got, tc.want)
		}
	}
	if Error.Class() != "badge badge-error" {
		t.Fatalf("unexpected class %q", Error.Class())
	}
}

func TestNewFinancialTable(t *testing.T) {
	items := []core.LineItem{
		{Category: "Ventas", Date: core.NewDate(2025, 2, 10), Amount: money(1_234_567)},
		{Category: "Servicios", Date: core.NewDate(2025, 5, 10), Amount: money(90_000)},
	}
	m := Build(items, periods.Quarters(2025), nil)
	tbl := NewFinancialTable("Ingresos", IncomeContext, m)
	if len(tbl.Rows) != 2 || len(tbl.Footer) != 4 || len(tbl.Rows[0].Cells) != 4 {
		t.Fatalf("unexpected layout %+v", tbl)
	}
	if tbl.Rows[0].Cells[0].Text != "$1.234.567" || tbl.Rows[0].Cells[1].Text != "$0" {
		t.Fatalf("unexpected cells %+v", tbl.Rows[0].Cells)
	}
	if tbl.Rows[0].Badge != Success || tbl.Rows[1].Badge != Error {
		t.Fatalf("unexpected badges %s %s", tbl.Rows[0].Badge, tbl.Rows[1].Badge)
	}
	if tbl.Total.Text != "$1.324.567" || tbl.Empty {
		t.Fatalf("unexpected total %+v", tbl.Total)
	}
}

func TestNewRecentTable(t *testing.T) {
	var items []core.LineItem
	for i := 0; i < 25; i++ {
		items = append(items, core.LineItem{ID: int64(i + 1), Kind: core.Expense, Date: core.NewDate(2025, 1, 1), Amount: money(10), Status: "paid"})
	}
	tbl := NewRecentTable("Recientes", items, 3, 10, nil)
	if tbl.Page != 3 || tbl.TotalPages != 3 || len(tbl.Rows) != 5 || tbl.Rows[0].ID != 21 {
		t.Fatalf("unexpected table %+v", tbl)
	}
	if len(tbl.Pages) != 3 || tbl.Rows[0].Date != "01/01/2025" || tbl.Rows[0].Status.Label != "paid" {
		t.Fatalf("unexpected rows %+v", tbl.Rows[0])
	}
	if !tbl.HasPrev || tbl.HasNext {
		t.Errorf("last page: HasPrev=%v HasNext=%v, want true false", tbl.HasPrev, tbl.HasNext)
	}
}

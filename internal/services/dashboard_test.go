package services

import (
	"context"
	"errors"
	"testing"

	"backoffice/internal/core"
	"backoffice/internal/filters"
	"backoffice/internal/periods"
)

func money(n int64) core.Money { return core.Money{Amount: n} }

func costSources() CostSources {
	return CostSources{
		CostCenters: fakeCostCenters{centers: []core.CostCenter{{ID: 1, Code: "CC1", Name: "Obra"}}},
		Lines: &fakeLister[core.LineItem]{items: []core.LineItem{
			{ID: 1, Category: "Materiales", Description: "Cemento", Date: core.NewDate(2025, 1, 15), Amount: money(300), CostCenterID: 1},
			{ID: 2, Category: "Materiales", Description: "Fierro", Date: core.NewDate(2025, 2, 3), Amount: money(200), CostCenterID: 2},
			{ID: 3, Category: "Servicios", Description: "Luz", Date: core.NewDate(2024, 12, 31), Amount: money(50), CostCenterID: 1},
		}},
		FixedCosts: &fakeLister[core.LineItem]{items: []core.LineItem{
			{ID: 10, Category: "ignored", Description: "Arriendo", Date: core.NewDate(2025, 1, 1), Amount: money(1000), CostCenterID: 1},
		}},
		PurchaseOrders: &fakeLister[core.LineItem]{},
		Remuneraciones: &fakeLister[core.Remuneracion]{items: []core.Remuneracion{
			{ID: 20, EmployeeName: "Ana", Year: 2025, Month: 3, NetSalary: money(800), Advance: money(100), Status: core.RemuneracionPaid, CostCenterID: 1},
			{ID: 21, EmployeeName: "Luis", Year: 2025, Month: 3, NetSalary: money(700), Status: core.RemuneracionCancelled, CostCenterID: 1},
		}},
		Previsionales: &fakeLister[core.Previsional]{items: []core.Previsional{
			{ID: 30, Type: core.PrevisionalAFP, Amount: money(90), Date: core.NewDate(2025, 3, 10), CostCenterID: 1},
		}},
	}
}

func TestCostDashboard_Load(t *testing.T) {
	d := NewCostDashboard(costSources(), nil)
	view := d.Load(context.Background(), ReportQuery{Year: 2025, Granularity: periods.Month})

	if !view.CostCenters.OK() || len(view.CostCenters.Data) != 1 {
		t.Fatalf("cost centers section: %+v", view.CostCenters)
	}
	if !view.Matrix.OK() {
		t.Fatalf("matrix error: %v", view.Matrix.Err)
	}
	m := view.Matrix.Data
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	// 300 + 200 + 1000 + 900 + 90; the 2024 line is outside the year.
	if m.Total.Amount != 2490 {
		t.Errorf("total = %d, want 2490", m.Total.Amount)
	}
	if m.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", m.Skipped)
	}
	want := map[string]int64{"Materiales": 500, CategoryFixedCosts: 1000, CategoryRemuneraciones: 900, CategoryPrevisionales: 90}
	for cat, amt := range want {
		if got := m.CategoryTotals[cat].Amount; got != amt {
			t.Errorf("%s = %d, want %d", cat, got, amt)
		}
	}
	if got := m.PeriodTotals["month-3"].Amount; got != 990 {
		t.Errorf("march = %d, want 990", got)
	}

	recs := view.Records.Data
	if len(recs) != 3 || recs[0].ID != 2 {
		t.Fatalf("records should be newest first, got %+v", recs)
	}
}

func TestCostDashboard_CostCenterAndSearchFilters(t *testing.T) {
	d := NewCostDashboard(costSources(), nil)

	m, err := d.Matrix(context.Background(), ReportQuery{Year: 2025, Granularity: periods.Quarter, CostCenter: "2"})
	if err != nil {
		t.Fatal(err)
	}
	if m.Total.Amount != 200 || len(m.Rows) != 1 {
		t.Fatalf("cost center 2 should only see Fierro, got total %d rows %d", m.Total.Amount, len(m.Rows))
	}

	items, err := d.Items(context.Background(), ReportQuery{Year: 2025, Search: "cEMENTO"})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != 1 {
		t.Fatalf("search should match case-insensitively, got %+v", items)
	}

	items, _ = d.Items(context.Background(), ReportQuery{Year: 2025, Categories: []string{CategoryPrevisionales}})
	if len(items) != 1 || items[0].Description != "AFP" {
		t.Fatalf("category filter, got %+v", items)
	}
}

func TestCostDashboard_SectionsFailIndependently(t *testing.T) {
	src := costSources()
	src.CostCenters = fakeCostCenters{err: errBackend}
	src.Remuneraciones = &fakeLister[core.Remuneracion]{err: errBackend}

	view := NewCostDashboard(src, nil).Load(context.Background(), ReportQuery{Year: 2025, Granularity: periods.Month})

	if !errors.Is(view.CostCenters.Err, errBackend) {
		t.Errorf("cost centers err = %v", view.CostCenters.Err)
	}
	if !errors.Is(view.Matrix.Err, errBackend) {
		t.Errorf("matrix err = %v", view.Matrix.Err)
	}
	if !view.Records.OK() || len(view.Records.Data) == 0 {
		t.Errorf("records should load despite other failures: %+v", view.Records)
	}
}

func TestCostDashboard_PassesCostCenterToERP(t *testing.T) {
	src := costSources()
	lines := src.Lines.(*fakeLister[core.LineItem])
	NewCostDashboard(src, nil).Items(context.Background(), ReportQuery{Year: 2024, CostCenter: "7"})

	if lines.query.Get("year") != "2024" || lines.query.Get("cost_center_id") != "7" {
		t.Fatalf("unexpected ERP query %v", lines.query)
	}

	NewCostDashboard(src, nil).Items(context.Background(), ReportQuery{Year: 2024})
	if lines.query.Has("cost_center_id") {
		t.Fatal("no cost center must not restrict the ERP query")
	}
}

func TestIncomeDashboard_Load(t *testing.T) {
	src := IncomeSources{
		Income: &fakeLister[core.LineItem]{items: []core.LineItem{
			{ID: 1, Category: "Ventas", Date: core.NewDate(2025, 4, 1), Amount: money(2_000_000)},
			{ID: 2, Category: "Servicios", Date: core.NewDate(2025, 7, 9), Amount: money(50_000)},
		}},
		Factoring: &fakeLister[core.LineItem]{items: []core.LineItem{
			{Amount: money(100), Factoring: core.FactoringPending},
			{Amount: money(300), Factoring: core.FactoringCollected},
			{Amount: money(999)},
		}},
	}
	view := NewIncomeDashboard(src, nil).Load(context.Background(), ReportQuery{Year: 2025, Granularity: periods.Quarter})

	if !view.Matrix.OK() || view.Matrix.Data.Total.Amount != 2_050_000 {
		t.Fatalf("matrix = %+v", view.Matrix)
	}
	if view.Matrix.Data.PeriodTotals["quarter-2"].Amount != 2_000_000 {
		t.Errorf("Q2 = %d", view.Matrix.Data.PeriodTotals["quarter-2"].Amount)
	}
	f := view.Factoring.Data
	if f.Count != 2 || f.Total().Amount != 400 {
		t.Errorf("factoring summary = %+v", f)
	}
	if view.Records.Data[0].ID != 2 || view.Records.Data[0].Kind != core.Income {
		t.Errorf("records = %+v", view.Records.Data)
	}
}

func TestParseReportQuery(t *testing.T) {
	orig := periods.CurrentYear
	periods.CurrentYear = func() int { return 2030 }
	t.Cleanup(func() { periods.CurrentYear = orig })

	q := ParseReportQuery(filters.Values{"year": "1999", "granularity": "WEEK", "page": "3", "category": []string{"a", "b"}})
	if q.Year != 2030 || q.Granularity != periods.Week || q.Page != 3 || len(q.Categories) != 2 {
		t.Fatalf("unexpected query %+v", q)
	}

	q = ParseReportQuery(filters.Values{"costCenterId": filters.All, "category": []string{filters.All}})
	if q.CostCenter != "" || len(q.Categories) != 0 {
		t.Errorf("all sentinel should not restrict: %+v", q)
	}
	if q = ParseReportQuery(filters.Values{"costCenterId": "4"}); q.CostCenter != "4" {
		t.Errorf("CostCenter = %q, want 4", q.CostCenter)
	}
}

func TestCostDashboard_RecentNewestFirst(t *testing.T) {
	items, err := NewCostDashboard(costSources(), nil).Recent(context.Background(), ReportQuery{Year: 2025})
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{2, 1, 3}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("items[%d].ID = %d, want %d", i, items[i].ID, id)
		}
	}
}

func TestERPQuerySpansWeeklyPeriods(t *testing.T) {
	src := costSources()
	lines := src.Lines.(*fakeLister[core.LineItem])
	lines.items = append(lines.items, core.LineItem{ID: 4, Category: "Materiales", Date: core.NewDate(2026, 1, 2), Amount: money(70)})

	m, err := NewCostDashboard(src, nil).Matrix(context.Background(), ReportQuery{Year: 2025, Granularity: periods.Week})
	if err != nil {
		t.Fatal(err)
	}
	// Week 52 of 2025 runs 29/12/2025 to 04/01/2026.
	if got, want := lines.query.Get("date_to"), "2026-01-04"; got != want {
		t.Errorf("date_to = %q, want %q", got, want)
	}
	if got, want := lines.query.Get("date_from"), "2025-01-06"; got != want {
		t.Errorf("date_from = %q, want %q", got, want)
	}
	if lines.query.Has("year") {
		t.Errorf("year must not be sent for a span crossing years: %v", lines.query)
	}
	if got := m.PeriodTotals["week-52"].Amount; got != 70 {
		t.Errorf("week-52 total = %d, want 70", got)
	}
}

func TestCostDashboard_LoadWithoutCostCenters(t *testing.T) {
	src := costSources()
	src.CostCenters = nil

	view := NewCostDashboard(src, nil).Load(context.Background(), ReportQuery{Year: 2025, Granularity: periods.Month})
	if !view.CostCenters.OK() || view.CostCenters.Data != nil {
		t.Errorf("cost centers section = %+v, want empty", view.CostCenters)
	}
	if !view.Matrix.OK() {
		t.Errorf("matrix error: %v", view.Matrix.Err)
	}
}

func TestDateRangeFilter(t *testing.T) {
	q := ParseReportQuery(filters.Values{"year": "2025", "date": []string{"2025-02-01", "2025-03-31"}})
	if q.From.ISO() != "2025-02-01" || q.To.ISO() != "2025-03-31" {
		t.Fatalf("range = %s..%s", q.From.ISO(), q.To.ISO())
	}
	items, err := NewCostDashboard(costSources(), nil).Recent(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != 2 {
		t.Errorf("items = %+v, want only id 2", items)
	}

	open := ParseReportQuery(filters.Values{"date": []string{"2025-02-01", ""}})
	if open.From.ISO() != "2025-02-01" || !open.To.IsEmpty() {
		t.Errorf("half-open range = %s..%q", open.From.ISO(), open.To.ISO())
	}
}

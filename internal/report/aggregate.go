// Package report aggregates line items into category x period matrices and
// builds the view models for the financial tables.
package report

import (
	"fmt"

	"backoffice/internal/core"
	"backoffice/internal/periods"
)

// CategoryRow holds one category's amounts keyed by period id. Missing keys
// count as zero.
type CategoryRow struct {
	Category string
	Amounts  map[string]core.Money
}

// Total sums every amount in the row.
func (r CategoryRow) Total() core.Money {
	var total core.Money
	for _, m := range r.Amounts {
		total = total.Add(m)
	}
	return total
}

// PeriodTotals sums each listed period across rows. Every period in periods
// is present in the result, with zero when no row has an amount for it.
func PeriodTotals(rows []CategoryRow, ps []periods.Period) map[string]core.Money {
	totals := make(map[string]core.Money, len(ps))
	for _, p := range ps {
		var sum core.Money
		for _, r := range rows {
			sum = sum.Add(r.Amounts[p.ID])
		}
		totals[p.ID] = sum
	}
	return totals
}

// CategoryTotals sums every amount of each row, keyed by category.
func CategoryTotals(rows []CategoryRow) map[string]core.Money {
	totals := make(map[string]core.Money, len(rows))
	for _, r := range rows {
		totals[r.Category] = totals[r.Category].Add(r.Total())
	}
	return totals
}

// GrandTotal sums period totals.
func GrandTotal(periodTotals map[string]core.Money) core.Money {
	var total core.Money
	for _, m := range periodTotals {
		total = total.Add(m)
	}
	return total
}

// Matrix is a category x period aggregation.
type Matrix struct {
	Periods        []periods.Period
	Rows           []CategoryRow
	PeriodTotals   map[string]core.Money
	CategoryTotals map[string]core.Money
	Total          core.Money
	// Skipped counts items whose date fell outside every period.
	Skipped int
}

// NewMatrix computes the totals for rows over ps.
func NewMatrix(rows []CategoryRow, ps []periods.Period) Matrix {
	pt := PeriodTotals(rows, ps)
	return Matrix{
		Periods:        ps,
		Rows:           rows,
		PeriodTotals:   pt,
		CategoryTotals: CategoryTotals(rows),
		Total:          GrandTotal(pt),
	}
}

// Check verifies that the grand total equals the sum of category totals. It
// fails when a row carries amounts for period ids that are not columns.
func (m Matrix) Check() error {
	var byCategory core.Money
	for _, v := range m.CategoryTotals {
		byCategory = byCategory.Add(v)
	}
	if byCategory != m.Total {
		return fmt.Errorf("matrix totals disagree: periods %d, categories %d", m.Total.Amount, byCategory.Amount)
	}
	return nil
}

// Build buckets items by categoryOf(item) and period. Rows keep the order in
// which categories are first seen. Items outside every period are counted in
// Skipped and never enter a row.
func Build(items []core.LineItem, ps []periods.Period, categoryOf func(core.LineItem) string) Matrix {
	if categoryOf == nil {
		categoryOf = func(it core.LineItem) string { return it.Category }
	}
	var rows []CategoryRow
	index := make(map[string]int)
	skipped := 0
	for _, it := range items {
		pid, ok := periods.Locate(ps, it.Date)
		if !ok {
			skipped++
			continue
		}
		cat := categoryOf(it)
		if cat == "" {
			cat = "Sin categoría"
		}
		i, seen := index[cat]
		if !seen {
			i = len(rows)
			index[cat] = i
			rows = append(rows, CategoryRow{Category: cat, Amounts: make(map[string]core.Money)})
		}
		rows[i].Amounts[pid] = rows[i].Amounts[pid].Add(it.Amount)
	}
	m := NewMatrix(rows, ps)
	m.Skipped = skipped
	return m
}

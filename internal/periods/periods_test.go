package periods

import (
	"fmt"
	"testing"

	"backoffice/internal/core"
)

func TestMonths(t *testing.T) {
	ms := Months(2025)
	if len(ms) != 12 {
		t.Fatalf("expected 12 months, got %d", len(ms))
	}
	want := []string{"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio", "Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre"}
	for i, m := range ms {
		if m.ID != fmt.Sprintf("month-%d", i+1) || m.Label != want[i] {
			t.Fatalf("month %d: got %+v", i+1, m)
		}
	}
	if ms[1].End != core.NewDate(2025, 2, 28) {
		t.Fatalf("february should end on the 28th, got %v", ms[1].End)
	}
}

func TestQuarters(t *testing.T) {
	qs := Quarters(2024)
	if len(qs) != 4 {
		t.Fatalf("expected 4 quarters, got %d", len(qs))
	}
	for i, q := range qs {
		if q.ID != fmt.Sprintf("quarter-%d", i+1) || q.Label != fmt.Sprintf("Q%d", i+1) {
			t.Fatalf("quarter %d: got %+v", i+1, q)
		}
	}
	if qs[3].Start != core.NewDate(2024, 10, 1) || qs[3].End != core.NewDate(2024, 12, 31) {
		t.Fatalf("unexpected Q4 bounds %v..%v", qs[3].Start, qs[3].End)
	}
}

func TestFirstMonday(t *testing.T) {
	cases := []struct {
		year int
		want core.Date
	}{
		{2024, core.NewDate(2024, 1, 1)}, // Jan 1 is a Monday
		{2023, core.NewDate(2023, 1, 2)}, // Jan 1 is a Sunday
		{2025, core.NewDate(2025, 1, 6)}, // Jan 1 is a Wednesday
		{2022, core.NewDate(2022, 1, 3)}, // Jan 1 is a Saturday
	}
	for _, tc := range cases {
		if got := FirstMonday(tc.year); got != tc.want {
			t.Fatalf("FirstMonday(%d) = %v, want %v", tc.year, got, tc.want)
		}
	}
}

func TestWeeks(t *testing.T) {
	ws := Weeks(2024)
	if len(ws) != WeeksPerYear {
		t.Fatalf("expected %d weeks, got %d", WeeksPerYear, len(ws))
	}
	for i, w := range ws {
		if w.ID != fmt.Sprintf("week-%d", i+1) {
			t.Fatalf("unexpected id %q", w.ID)
		}
		if w.End.Sub(w.Start.Time).Hours() != 6*24 {
			t.Fatalf("week %d does not span seven days", i+1)
		}
		if i > 0 && w.Start.Sub(ws[i-1].Start.Time).Hours() != 7*24 {
			t.Fatalf("week %d does not follow the previous one", i+1)
		}
	}
	// 2024 is a leap year; week 5 crosses into February.
	if ws[4].Label != "29/01 - 04/02" {
		t.Fatalf("unexpected week 5 label %q", ws[4].Label)
	}
}

func TestWeekDateRange(t *testing.T) {
	r := WeekDateRange(2024, 5)
	if r.StartDate != "29/01" || r.EndDate != "04/02" {
		t.Fatalf("unexpected range %+v", r)
	}
	r = WeekDateRange(2025, 1)
	if r.StartDate != "06/01" || r.EndDate != "12/01" {
		t.Fatalf("unexpected range %+v", r)
	}
}

func TestYearsAndGenerate(t *testing.T) {
	ys := Years(2022, 2024)
	if len(ys) != 3 || ys[0].ID != "year-2022" || ys[2].Label != "2024" {
		t.Fatalf("unexpected years %+v", ys)
	}
	if Years(2025, 2024) != nil {
		t.Fatalf("expected nil for an inverted range")
	}
	cases := map[Granularity]int{Week: 52, Month: 12, Quarter: 4, Year: 1}
	for g, n := range cases {
		if got := len(Generate(g, 2025)); got != n {
			t.Fatalf("Generate(%s) returned %d periods, want %d", g, got, n)
		}
	}
}

func TestParseGranularity(t *testing.T) {
	cases := map[string]Granularity{
		"week":     Week,
		" Quarter": Quarter,
		"year":     Year,
		"":         Month,
		"daily":    Month,
	}
	for in, want := range cases {
		if got := ParseGranularity(in); got != want {
			t.Fatalf("ParseGranularity(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLocate(t *testing.T) {
	ms := Months(2025)
	if id, ok := Locate(ms, core.NewDate(2025, 3, 31)); !ok || id != "month-3" {
		t.Fatalf("got %q %v", id, ok)
	}
	if _, ok := Locate(ms, core.NewDate(2026, 1, 1)); ok {
		t.Fatalf("date outside the year should not be located")
	}

	ws := Weeks(2025)
	if _, ok := Locate(ws, core.NewDate(2025, 1, 3)); ok {
		t.Fatalf("days before the first Monday belong to no week")
	}
	if id, ok := Locate(ws, core.NewDate(2025, 1, 12)); !ok || id != "week-1" {
		t.Fatalf("got %q %v", id, ok)
	}
	if _, ok := Locate(nil, core.NewDate(2025, 1, 12)); ok {
		t.Fatalf("empty period list should locate nothing")
	}
}

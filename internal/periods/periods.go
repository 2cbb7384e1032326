// Package periods generates the financial periods used as report columns.
//
// Weeks use a fixed seven-day stride from the first Monday on or after
// January 1st, not ISO week numbering: days before that Monday belong to no
// week of the year.
package periods

import (
	"fmt"
	"strings"
	"time"

	"backoffice/internal/core"
)

type Granularity string

const (
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

// WeeksPerYear is fixed; the trailing days of a year belong to no week.
const WeeksPerYear = 52

var monthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// Period is a report column. ID is the join key between category rows and
// columns.
type Period struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Start core.Date `json:"startDate"`
	End   core.Date `json:"endDate"`
}

// Contains reports whether d falls within the period, both ends inclusive.
func (p Period) Contains(d core.Date) bool {
	return !d.Before(p.Start.Time) && !d.After(p.End.Time)
}

// DateRange is the pair of DD/MM strings describing a week.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (r DateRange) String() string {
	return r.StartDate + " - " + r.EndDate
}

// ParseGranularity falls back to Month for unknown input.
func ParseGranularity(s string) Granularity {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Week, Month, Quarter, Year:
		return g
	default:
		return Month
	}
}

// FirstMonday returns the first Monday on or after January 1st of year.
func FirstMonday(year int) core.Date {
	jan1 := core.NewDate(year, 1, 1)
	wd := int(jan1.Weekday())
	if wd == 0 {
		wd = 7
	}
	offset := (8 - wd) % 7
	return core.Date{Time: jan1.AddDate(0, 0, offset)}
}

func weekBounds(year, week int) (core.Date, core.Date) {
	start := FirstMonday(year).AddDate(0, 0, 7*(week-1))
	return core.Date{Time: start}, core.Date{Time: start.AddDate(0, 0, 6)}
}

// WeekDateRange returns the DD/MM bounds of week (1-based) in year.
func WeekDateRange(year, week int) DateRange {
	start, end := weekBounds(year, week)
	return DateRange{StartDate: core.FormatDayMonth(start), EndDate: core.FormatDayMonth(end)}
}

// Weeks returns the 52 weeks of year.
func Weeks(year int) []Period {
	out := make([]Period, 0, WeeksPerYear)
	for w := 1; w <= WeeksPerYear; w++ {
		start, end := weekBounds(year, w)
		out = append(out, Period{
			ID:    fmt.Sprintf("week-%d", w),
			Label: WeekDateRange(year, w).String(),
			Start: start,
			End:   end,
		})
	}
	return out
}

// Months returns the twelve months of year with Spanish names.
func Months(year int) []Period {
	out := make([]Period, 0, 12)
	for m := 1; m <= 12; m++ {
		start := core.NewDate(year, m, 1)
		out = append(out, Period{
			ID:    fmt.Sprintf("month-%d", m),
			Label: monthNames[m-1],
			Start: start,
			End:   core.Date{Time: start.AddDate(0, 1, -1)},
		})
	}
	return out
}

// MonthName returns the Spanish name for month 1-12, or "" when out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// Quarters returns Q1..Q4 of year.
func Quarters(year int) []Period {
	out := make([]Period, 0, 4)
	for q := 1; q <= 4; q++ {
		start := core.NewDate(year, 3*(q-1)+1, 1)
		out = append(out, Period{
			ID:    fmt.Sprintf("quarter-%d", q),
			Label: fmt.Sprintf("Q%d", q),
			Start: start,
			End:   core.Date{Time: start.AddDate(0, 3, -1)},
		})
	}
	return out
}

// Years returns one period per calendar year in [from, to]. It returns nil
// when to < from.
func Years(from, to int) []Period {
	if to < from {
		return nil
	}
	out := make([]Period, 0, to-from+1)
	for y := from; y <= to; y++ {
		out = append(out, Period{
			ID:    fmt.Sprintf("year-%d", y),
			Label: fmt.Sprintf("%d", y),
			Start: core.NewDate(y, 1, 1),
			End:   core.NewDate(y, 12, 31),
		})
	}
	return out
}

// Generate returns the periods of year for g. Year granularity yields the
// single calendar year.
func Generate(g Granularity, year int) []Period {
	switch g {
	case Week:
		return Weeks(year)
	case Quarter:
		return Quarters(year)
	case Year:
		return Years(year, year)
	default:
		return Months(year)
	}
}

// Locate returns the id of the period containing d. Periods are expected in
// chronological order and non-overlapping.
func Locate(periods []Period, d core.Date) (string, bool) {
	if len(periods) == 0 || d.Before(periods[0].Start.Time) || d.After(periods[len(periods)-1].End.Time) {
		return "", false
	}
	for _, p := range periods {
		if p.Contains(d) {
			return p.ID, true
		}
	}
	return "", false
}

// CurrentYear is overridable in tests.
var CurrentYear = func() int { return time.Now().Year() }

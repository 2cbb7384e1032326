package report

import "backoffice/internal/core"

// Context selects how an amount is judged: large income is good, large
// expense is bad.
type Context string

const (
	IncomeContext  Context = "income"
	ExpenseContext Context = "expense"
)

type Severity string

const (
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

const (
	highThreshold   = 1_000_000
	mediumThreshold = 100_000
)

// Badge classifies amount into three tiers: above 1.000.000, above 100.000,
// and the rest.
func Badge(amount core.Money, ctx Context) Severity {
	tier := 2
	switch {
	case amount.Amount > highThreshold:
		tier = 0
	case amount.Amount > mediumThreshold:
		tier = 1
	}
	if ctx == ExpenseContext {
		return [3]Severity{Error, Warning, Success}[tier]
	}
	return [3]Severity{Success, Warning, Error}[tier]
}

// Class is the CSS class for the severity badge.
func (s Severity) Class() string {
	switch s {
	case Success:
		return "badge badge-success"
	case Warning:
		return "badge badge-warning"
	default:
		return "badge badge-error"
	}
}

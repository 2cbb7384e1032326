package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// FactoringSummary totals income by factoring status.
type FactoringSummary struct {
	Pending   Money
	Factored  Money
	Collected Money
	Count     int
}

// Add folds one income item into the summary. Items without a factoring
// status are ignored.
func (s *FactoringSummary) Add(item LineItem) {
	switch item.Factoring {
	case FactoringPending:
		s.Pending = s.Pending.Add(item.Amount)
	case FactoringFactored:
		s.Factored = s.Factored.Add(item.Amount)
	case FactoringCollected:
		s.Collected = s.Collected.Add(item.Amount)
	default:
		return
	}
	s.Count++
}

// Total is the sum of all factoring buckets.
func (s FactoringSummary) Total() Money {
	return s.Pending.Add(s.Factored).Add(s.Collected)
}

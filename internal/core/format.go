package core

// FormatDate renders a date as DD/MM/YYYY. Zero dates render as "".
func FormatDate(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

// FormatDayMonth renders a date as DD/MM, used for week labels.
func FormatDayMonth(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01")
}

// FormatPercent renders 0..100 as "NN%".
func FormatPercent(p int) string {
	return FormatNumber(int64(p)) + "%"
}

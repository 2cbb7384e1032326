// Package pagination computes page windows and the page-number strip with
// ellipses shown under paginated tables.
package pagination

// PageItem is either a page number or an ellipsis gap.
type PageItem struct {
	Number   int
	Ellipsis bool
}

func page(n int) PageItem { return PageItem{Number: n} }

var gap = PageItem{Ellipsis: true}

// Pages returns the page strip for total pages with current selected.
//
//	Pages(10, 1)  -> 1 2 3 4 … 10
//	Pages(10, 10) -> 1 … 7 8 9 10
//	Pages(10, 5)  -> 1 … 4 5 6 … 10
func Pages(total, current int) []PageItem {
	if total <= 0 {
		return nil
	}
	if total <= 5 {
		return span(1, total)
	}
	switch {
	case current <= 3:
		return append(span(1, 4), gap, page(total))
	case current >= total-2:
		return append([]PageItem{page(1), gap}, span(total-3, total)...)
	default:
		out := []PageItem{page(1), gap}
		out = append(out, span(current-1, current+1)...)
		return append(out, gap, page(total))
	}
}

func span(from, to int) []PageItem {
	out := make([]PageItem, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, page(n))
	}
	return out
}

// Page is one window of a slice.
type Page[T any] struct {
	Items      []T
	Page       int
	PerPage    int
	TotalItems int
	TotalPages int
}

func (p Page[T]) HasPrev() bool { return p.Page > 1 }
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }

// Paginate returns the requested window of items. page is clamped into
// [1, TotalPages]; perPage below 1 defaults to 10.
func Paginate[T any](items []T, pageNum, perPage int) Page[T] {
	if perPage < 1 {
		perPage = 10
	}
	totalPages := (len(items) + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if pageNum < 1 {
		pageNum = 1
	}
	if pageNum > totalPages {
		pageNum = totalPages
	}
	start := (pageNum - 1) * perPage
	end := min(start+perPage, len(items))
	return Page[T]{
		Items:      items[start:end],
		Page:       pageNum,
		PerPage:    perPage,
		TotalItems: len(items),
		TotalPages: totalPages,
	}
}

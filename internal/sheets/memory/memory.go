// Package memory keeps written reports in process, for the memory export
// backend and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"backoffice/internal/report"
	ports "backoffice/internal/sheets"
)

var _ ports.ReportWriter = (*Writer)(nil)

type Writer struct {
	mu     sync.Mutex
	sheets map[string][][]any
	writes int
}

func New() *Writer {
	return &Writer{sheets: make(map[string][][]any)}
}

// WriteReport replaces the tab content and returns a synthetic reference.
func (w *Writer) WriteReport(ctx context.Context, title string, m report.Matrix) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	values := ports.Values(m)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sheets[title] = values
	w.writes++
	return fmt.Sprintf("mem:%s!A1:R%d", title, len(values)), nil
}

// Sheet returns a copy of the rows written to title.
func (w *Writer) Sheet(title string) ([][]any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.sheets[title]
	if !ok {
		return nil, false
	}
	return append([][]any(nil), v...), true
}

func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

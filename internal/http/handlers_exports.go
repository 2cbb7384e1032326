package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/core"
	"backoffice/internal/filters"
	"backoffice/internal/periods"
)

// handleCreateExport queues a spreadsheet export of a report.
func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exports == nil {
		s.writeError(w, r, errUnavailable)
		return
	}
	if !s.tenant(r).Enabled("exports") {
		fail(w, r, http.StatusForbidden, APIError{Code: CodeForbidden, Message: "Las exportaciones no están habilitadas para esta organización."})
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.badRequest(w, r, "Formato de solicitud inválido.")
		return
	}
	job := core.ExportJob{
		Kind:        core.ReportKind(p.Get("kind")),
		Year:        p.Int("year", periods.CurrentYear()),
		Granularity: p.Get("granularity"),
	}
	if cc := p.Get("costCenterId"); cc != filters.All {
		job.CostCenter = cc
	}
	if job.Granularity == "" {
		job.Granularity = string(periods.Month)
	}

	queued, err := s.deps.Exports.Enqueue(r.Context(), job)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(NewHTMXResponse().TriggerExportQueued(queued.ID).TriggerSuccessNotification("Exportación en cola."),
		w, r, http.StatusAccepted, queued)
}

func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exports == nil {
		s.writeError(w, r, errUnavailable)
		return
	}
	job, err := s.deps.Exports.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, job)
}

package http

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/core"
	"backoffice/internal/pagination"
)

const maxPerPage = 100

// recordService is the CRUD surface of services.Records.
type recordService[T any] interface {
	Resource() string
	List(ctx context.Context, query url.Values) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, v T) (T, error)
	Update(ctx context.Context, id int64, v T) (T, error)
	Delete(ctx context.Context, id int64, confirmed bool) error
}

type pageBody[T any] struct {
	Items      []T            `json:"items"`
	Page       int            `json:"page"`
	PerPage    int            `json:"perPage"`
	TotalItems int            `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
	Pages      []pageItemBody `json:"pages"`
}

// mountRecords registers list, get, create, update and delete for svc under
// path. extra adds routes to the same subrouter.
func mountRecords[T any](s *Server, r chi.Router, path string, svc recordService[T], extra func(chi.Router)) {
	h := recordHandlers[T]{s: s, svc: svc}
	r.Route(path, func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		if extra != nil {
			extra(r)
		}
	})
}

type recordHandlers[T any] struct {
	s   *Server
	svc recordService[T]
}

// list forwards the query to the ERP, minus paging, and paginates locally.
func (h recordHandlers[T]) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(q, "page", 1)
	perPage := queryInt(q, "perPage", h.s.cfg.RecentPageSize)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	forward := url.Values{}
	for k, v := range q {
		if k != "page" && k != "perPage" {
			forward[k] = v
		}
	}

	items, err := h.svc.List(r.Context(), forward)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}
	p := pagination.Paginate(items, page, perPage)
	if p.Items == nil {
		p.Items = []T{}
	}
	respond(w, r, http.StatusOK, pageBody[T]{
		Items:      p.Items,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
		Pages:      pageItems(pagination.Pages(p.TotalPages, p.Page)),
	})
}

func (h recordHandlers[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.s.badRequest(w, r, "Identificador inválido.")
		return
	}
	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, v)
}

func (h recordHandlers[T]) create(w http.ResponseWriter, r *http.Request) {
	v, err := decodeJSON[T](r)
	if err != nil {
		h.s.badRequest(w, r, "Cuerpo de solicitud inválido.")
		return
	}
	created, err := h.svc.Create(r.Context(), v)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}
	ok(NewHTMXResponse().TriggerRecordSaved(h.svc.Resource()).TriggerSuccessNotification("Registro creado."),
		w, r, http.StatusCreated, created)
}

func (h recordHandlers[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.s.badRequest(w, r, "Identificador inválido.")
		return
	}
	v, err := decodeJSON[T](r)
	if err != nil {
		h.s.badRequest(w, r, "Cuerpo de solicitud inválido.")
		return
	}
	updated, err := h.svc.Update(r.Context(), id, v)
	if err != nil {
		h.s.writeError(w, r, err)
		return
	}
	ok(NewHTMXResponse().TriggerRecordSaved(h.svc.Resource()).TriggerSuccessNotification("Cambios guardados."),
		w, r, http.StatusOK, updated)
}

// delete requires confirm=true, the server side of the confirmation dialog.
func (h recordHandlers[T]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.s.badRequest(w, r, "Identificador inválido.")
		return
	}
	if err := h.svc.Delete(r.Context(), id, confirmed(r)); err != nil {
		h.s.writeError(w, r, err)
		return
	}
	ok(NewHTMXResponse().TriggerRecordDeleted(h.svc.Resource(), id).TriggerSuccessNotification("Registro eliminado."),
		w, r, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) handleListMilestones(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, "Identificador inválido.")
		return
	}
	milestones, err := s.deps.Projects.ListMilestones(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if milestones == nil {
		milestones = []core.Milestone{}
	}
	respond(w, r, http.StatusOK, milestones)
}

func (s *Server) handleAddMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, r, "Identificador inválido.")
		return
	}
	m, err := decodeJSON[core.Milestone](r)
	if err != nil {
		s.badRequest(w, r, "Cuerpo de solicitud inválido.")
		return
	}
	created, err := s.deps.Projects.AddMilestone(r.Context(), id, m)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(NewHTMXResponse().TriggerRecordSaved("milestones"), w, r, http.StatusCreated, created)
}

type option struct {
	Value string `json:"value"`
	core.StatusDisplay
}

type displayer interface {
	~string
	Display() core.StatusDisplay
}

func optionsOf[T displayer](values []T) []option {
	out := make([]option, len(values))
	for i, v := range values {
		out[i] = option{Value: string(v), StatusDisplay: v.Display()}
	}
	return out
}

// handleOptions lists the select options for the record forms.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string][]option{
		"remuneracionStatuses": optionsOf(core.RemuneracionStatuses()),
		"projectStatuses":      optionsOf(core.ProjectStatuses()),
		"paymentMethods":       optionsOf(core.PaymentMethods()),
		"previsionalTypes":     optionsOf(core.PrevisionalTypes()),
		"factoringStatuses":    optionsOf(core.FactoringStatuses()),
	})
}

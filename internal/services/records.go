package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"backoffice/internal/core"
	applog "backoffice/internal/log"
)

// ErrNotConfirmed is returned by Delete when the caller did not confirm.
var ErrNotConfirmed = errors.New("delete not confirmed")

// Validatable records check their own fields before any ERP call.
type Validatable interface {
	Validate() core.FieldErrors
}

// Records is a CRUD service over one ERP collection.
type Records[T Validatable] struct {
	resource string
	store    Store[T]
	// prepare fills defaults before validation, e.g. the line kind.
	prepare func(T) T
	log     *applog.StructuredLogger
}

func newRecords[T Validatable](resource string, store Store[T], prepare func(T) T, logger *applog.Logger) *Records[T] {
	if logger == nil {
		logger = applog.Discard()
	}
	if prepare == nil {
		prepare = func(v T) T { return v }
	}
	return &Records[T]{
		resource: resource,
		store:    store,
		prepare:  prepare,
		log:      applog.NewStructuredLogger(logger.WithComponent(applog.ComponentRecords)),
	}
}

func (r *Records[T]) Resource() string { return r.resource }

func (r *Records[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	out, err := r.store.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.resource, err)
	}
	return out, nil
}

func (r *Records[T]) Get(ctx context.Context, id int64) (T, error) {
	v, err := r.store.Get(ctx, id)
	if err != nil {
		return v, fmt.Errorf("get %s %d: %w", r.resource, id, err)
	}
	return v, nil
}

// Create validates v and sends it to the ERP. Validation failures are
// returned as core.FieldErrors without contacting the ERP.
func (r *Records[T]) Create(ctx context.Context, v T) (T, error) {
	v = r.prepare(v)
	if err := v.Validate().Err(); err != nil {
		var zero T
		return zero, err
	}
	created, err := r.store.Create(ctx, v)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("create %s: %w", r.resource, err)
	}
	r.log.LogRecordSaved(ctx, r.resource, idOf(created), applog.OpCreate)
	return created, nil
}

func (r *Records[T]) Update(ctx context.Context, id int64, v T) (T, error) {
	v = r.prepare(v)
	if err := v.Validate().Err(); err != nil {
		var zero T
		return zero, err
	}
	updated, err := r.store.Update(ctx, id, v)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("update %s %d: %w", r.resource, id, err)
	}
	r.log.LogRecordSaved(ctx, r.resource, id, applog.OpUpdate)
	return updated, nil
}

// Delete removes a record once the caller confirmed it.
func (r *Records[T]) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s %d: %w", r.resource, id, err)
	}
	r.log.LogRecordSaved(ctx, r.resource, id, applog.OpDelete)
	return nil
}

func idOf(v any) int64 {
	switch x := v.(type) {
	case core.Employee:
		return x.ID
	case core.Remuneracion:
		return x.ID
	case core.Previsional:
		return x.ID
	case core.Project:
		return x.ID
	case core.Milestone:
		return x.ID
	case core.LineItem:
		return x.ID
	}
	return 0
}

type (
	EmployeeService     = Records[core.Employee]
	RemuneracionService = Records[core.Remuneracion]
	PrevisionalService  = Records[core.Previsional]
	IncomeService       = Records[core.LineItem]
)

func NewEmployeeService(store Store[core.Employee], logger *applog.Logger) *EmployeeService {
	return newRecords("empleados", store, nil, logger)
}

func NewRemuneracionService(store Store[core.Remuneracion], logger *applog.Logger) *RemuneracionService {
	return newRecords("remuneraciones", store, func(r core.Remuneracion) core.Remuneracion {
		if r.Status == "" {
			r.Status = core.RemuneracionPending
		}
		return r
	}, logger)
}

func NewPrevisionalService(store Store[core.Previsional], logger *applog.Logger) *PrevisionalService {
	return newRecords("previsionales", store, nil, logger)
}

func NewIncomeService(store Store[core.LineItem], logger *applog.Logger) *IncomeService {
	return newRecords("income", store, func(l core.LineItem) core.LineItem {
		l.Kind = core.Income
		return l
	}, logger)
}

// ProjectService manages projects and their milestones.
type ProjectService struct {
	*Records[core.Project]
	Milestones *Records[core.Milestone]
}

func NewProjectService(projects Store[core.Project], milestones Store[core.Milestone], logger *applog.Logger) *ProjectService {
	return &ProjectService{
		Records: newRecords("projects", projects, func(p core.Project) core.Project {
			if p.Status == "" {
				p.Status = core.ProjectDraft
			}
			return p
		}, logger),
		Milestones: newRecords("milestones", milestones, nil, logger),
	}
}

// ListMilestones returns the milestones of one project.
func (s *ProjectService) ListMilestones(ctx context.Context, projectID int64) ([]core.Milestone, error) {
	all, err := s.Milestones.List(ctx, url.Values{"project_id": {strconv.FormatInt(projectID, 10)}})
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, m := range all {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

// AddMilestone attaches a milestone to projectID.
func (s *ProjectService) AddMilestone(ctx context.Context, projectID int64, m core.Milestone) (core.Milestone, error) {
	m.ProjectID = projectID
	return s.Milestones.Create(ctx, m)
}

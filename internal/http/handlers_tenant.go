package http

import (
	"errors"
	"net/http"

	"backoffice/internal/core"
	applog "backoffice/internal/log"
	"backoffice/internal/tenant"
)

const tenantCookieMaxAge = 365 * 24 * 60 * 60

type tenantBody struct {
	tenant.Tenant
	CSSVariables string `json:"cssVariables"`
}

func newTenantBody(t tenant.Tenant) tenantBody {
	return tenantBody{Tenant: t, CSSVariables: t.Theme.CSSVariables()}
}

func (s *Server) handleCurrentTenant(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, newTenantBody(s.tenant(r)))
}

func (s *Server) handleTenants(w http.ResponseWriter, r *http.Request) {
	available := s.deps.Tenants.Available()
	out := make([]tenantBody, 0, len(available))
	for _, t := range available {
		out = append(out, newTenantBody(t))
	}
	respond(w, r, http.StatusOK, out)
}

// handleSwitchTenant changes the caller's tenant. The choice goes back in a
// cookie and is saved for the ERP session; a failure to save it is logged and
// the cookie still applies.
func (s *Server) handleSwitchTenant(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.badRequest(w, r, "Formato de solicitud inválido.")
		return
	}
	id := p.Get("id")
	if id == "" {
		fail(w, r, http.StatusUnprocessableEntity, APIError{
			Code:    CodeValidation,
			Message: "Revise los campos marcados.",
			Fields:  core.FieldErrors{"id": "Seleccione una organización"},
		})
		return
	}

	t, err := s.deps.Tenants.Switch(r.Context(), id, s.sessionValue(r))
	if errors.Is(err, tenant.ErrUnknownTenant) {
		s.writeError(w, r, err)
		return
	}
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Tenant choice not persisted",
			applog.FieldTenant, id, applog.FieldError, err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tenant.CookieName,
		Value:    t.ID,
		Path:     "/",
		MaxAge:   tenantCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	ok(NewHTMXResponse().TriggerTenantSwitched(t.ID), w, r, http.StatusOK, newTenantBody(t))
}

// withTenant resolves the caller's tenant once per request.
func (s *Server) withTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var choice string
		if c, err := r.Cookie(tenant.CookieName); err == nil {
			choice = c.Value
		}
		t := s.deps.Tenants.Resolve(r.Context(), choice, s.sessionValue(r))
		ctx := tenant.NewContext(r.Context(), t)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldTenant, t.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tenant returns the request's tenant, or the default outside withTenant.
func (s *Server) tenant(r *http.Request) tenant.Tenant {
	if t, ok := tenant.FromContext(r.Context()); ok {
		return t
	}
	return s.deps.Tenants.Default()
}

func (s *Server) sessionValue(r *http.Request) string {
	if c, err := r.Cookie(s.cfg.SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

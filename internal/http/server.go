package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/core"
	"backoffice/internal/erp"
	applog "backoffice/internal/log"
	"backoffice/internal/middleware/ratelimit"
	"backoffice/internal/middleware/security"
	"backoffice/internal/middleware/trace"
	"backoffice/internal/report"
	"backoffice/internal/services"
	"backoffice/internal/tenant"
	appweb "backoffice/web"
)

// Catalog serves the reference lists behind filter options.
// *erp.Catalog satisfies it.
type Catalog interface {
	CostCenters(ctx context.Context) ([]core.CostCenter, error)
	Categories(ctx context.Context, kind string) ([]erp.Category, error)
}

// Deps are the services the handlers call. Exports and Ready may be nil.
type Deps struct {
	Costs          *services.CostDashboard
	Income         *services.IncomeDashboard
	Catalog        Catalog
	Employees      *services.EmployeeService
	Remuneraciones *services.RemuneracionService
	Previsionales  *services.PrevisionalService
	IncomeRecords  *services.IncomeService
	Projects       *services.ProjectService
	Exports        *services.ExportService
	Tenants        *tenant.Holder
	Ready          func(ctx context.Context) error
}

type Config struct {
	Addr               string
	SessionCookieName  string
	RecentPageSize     int
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	cfg       Config
	deps      Deps
	templates *template.Template
	logger    *applog.Logger

	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// server. Template parse failures are logged and reported by /readyz.
func NewServer(cfg Config, deps Deps, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.Discard()
	}
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = "session"
	}
	if cfg.RecentPageSize <= 0 {
		cfg.RecentPageSize = 10
	}
	if deps.Tenants == nil {
		deps.Tenants = tenant.NewHolder(nil, nil, logger)
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  logger.WithComponent(applog.ComponentHTTP),
		started: time.Now(),
	}

	s.detector = security.NewDetector(logger)
	for _, cidr := range cfg.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{Limit: cfg.RateLimitPerMinute})

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
		t = nil
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

var templateFuncs = template.FuncMap{
	"badgeClass": func(s report.Severity) string { return s.Class() },
	"statusClass": func(d core.StatusDisplay) string {
		return "badge badge-" + string(d.Variant)
	},
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(s.recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.limitWrites)
	r.Use(s.withSession)
	r.Use(s.withTenant)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusNotFound, APIError{Code: CodeNotFound, Message: "Recurso no encontrado."})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusMethodNotAllowed, APIError{Code: CodeBadRequest, Message: "Método no permitido."})
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	r.Get("/", s.handleIndex)
	r.Route("/ui", func(r chi.Router) {
		r.Get("/financial-table", s.handleFinancialTablePartial)
		r.Get("/recent-table", s.handleRecentTablePartial)
		r.Get("/filters", s.handleFiltersPartial)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/periods", s.handlePeriods)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/costs", s.handleCostReport)
			r.Get("/income", s.handleIncomeReport)
			r.Get("/recent", s.handleRecent)
			r.Get("/{kind}.pdf", s.handleReportPDF)
		})
		r.Post("/exports", s.handleCreateExport)
		r.Get("/exports/{id}", s.handleExportStatus)

		r.Get("/tenant", s.handleCurrentTenant)
		r.Put("/tenant", s.handleSwitchTenant)
		r.Get("/tenants", s.handleTenants)
		r.Get("/options", s.handleOptions)

		if s.deps.Employees != nil {
			mountRecords(s, r, "/empleados", s.deps.Employees, nil)
		}
		if s.deps.Remuneraciones != nil {
			mountRecords(s, r, "/remuneraciones", s.deps.Remuneraciones, nil)
		}
		if s.deps.Previsionales != nil {
			mountRecords(s, r, "/previsionales", s.deps.Previsionales, nil)
		}
		if s.deps.IncomeRecords != nil {
			mountRecords(s, r, "/income", s.deps.IncomeRecords, nil)
		}
		if s.deps.Projects != nil {
			mountRecords(s, r, "/projects", s.deps.Projects, func(r chi.Router) {
				r.Get("/{id}/milestones", s.handleListMilestones)
				r.Post("/{id}/milestones", s.handleAddMilestone)
			})
		}
	})
	return r
}

// limitWrites rate-limits mutating requests only; dashboards reload often.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusTooManyRequests, APIError{Code: CodeRateLimited, Message: "Demasiadas solicitudes. Intente nuevamente en unos segundos."})
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

// withSession forwards the browser's ERP session cookie to outgoing ERP calls.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(s.cfg.SessionCookieName); err == nil && c.Value != "" {
			r = r.WithContext(erp.WithSession(r.Context(), c))
		}
		next.ServeHTTP(w, r)
	})
}

// expireSession clears the session cookie and tells htmx to go to login.
func (s *Server) expireSession(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", LoginPath)
	}
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panicked", "panic", rec, applog.FieldPath, r.URL.Path)
				fail(w, r, http.StatusInternalServerError, APIError{Code: CodeInternal, Message: "Error interno del servidor."})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// writeError writes err as a JSON envelope. An expired ERP session also
// clears the cookie and redirects htmx to the login page.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if clientGone(r, err) {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Client went away", applog.FieldPath, r.URL.Path)
		return
	}
	status, apiErr := classify(err)
	s.logFailure(r, status, err)
	if status == http.StatusUnauthorized {
		s.expireSession(w, r)
	}
	fail(w, r, status, apiErr)
}

// writePartialError renders err as the inline banner of an HTML partial with
// a retry button targeting the same URL.
func (s *Server) writePartialError(w http.ResponseWriter, r *http.Request, err error) {
	if clientGone(r, err) {
		return
	}
	status, apiErr := classify(err)
	s.logFailure(r, status, err)
	if status == http.StatusUnauthorized {
		s.expireSession(w, r)
	}
	ErrorBanner(status, apiErr.Message, r.URL.RequestURI()).Write(w)
}

func (s *Server) logFailure(r *http.Request, status int, err error) {
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", applog.FieldError, err, applog.FieldPath, r.URL.Path, applog.FieldStatusCode, status)
		return
	}
	logger.WarnContext(r.Context(), "Request rejected", applog.FieldError, err, applog.FieldPath, r.URL.Path, applog.FieldStatusCode, status)
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	fail(w, r, http.StatusBadRequest, APIError{Code: CodeBadRequest, Message: msg})
}

// render executes a template, writing a banner when templates are missing or
// fail.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		ErrorBanner(http.StatusInternalServerError, "Plantillas no disponibles.", "").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err, "template", name)
	}
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/core"
	"backoffice/internal/erp"
	"backoffice/internal/filters"
	applog "backoffice/internal/log"
	"backoffice/internal/multiselect"
	"backoffice/internal/pagination"
	"backoffice/internal/pdf"
	"backoffice/internal/periods"
	"backoffice/internal/report"
	"backoffice/internal/services"
	"backoffice/internal/tenant"
)

var granularityOptions = []filters.Option{
	{Value: string(periods.Week), Label: "Semanal"},
	{Value: string(periods.Month), Label: "Mensual"},
	{Value: string(periods.Quarter), Label: "Trimestral"},
	{Value: string(periods.Year), Label: "Anual"},
}

// costCategories are the rows the cost dashboard synthesizes from payroll,
// social security, fixed costs and purchase orders.
var costCategories = []string{
	services.CategoryRemuneraciones,
	services.CategoryPrevisionales,
	services.CategoryFixedCosts,
	services.CategoryPurchaseOrders,
}

func reportKind(s string) (core.ReportKind, bool) {
	switch k := core.ReportKind(s); k {
	case core.CostsReport, core.IncomeReport:
		return k, true
	case "":
		return core.CostsReport, true
	}
	return "", false
}

func reportContext(kind core.ReportKind) report.Context {
	if kind == core.IncomeReport {
		return report.IncomeContext
	}
	return report.ExpenseContext
}

// panel declares the dashboard filters for kind.
func (s *Server) panel(kind core.ReportKind) *filters.Panel {
	cur := periods.CurrentYear()
	var years []filters.Option
	for _, p := range periods.Years(cur-4, cur+1) {
		years = append(years, filters.Option{Value: p.Label, Label: p.Label})
	}

	costCenter := filters.Filter{Key: "costCenterId", Label: "Centro de costo", Type: filters.Select, Placeholder: "Todos"}
	category := filters.Filter{Key: "category", Label: "Categoría", Type: filters.MultiSelect, Placeholder: "Todas"}
	if s.deps.Catalog != nil {
		costCenter.OptionsFunc = s.costCenterOptions
		category.OptionsFunc = s.categoryOptions(kind)
	} else {
		costCenter.Options = []filters.Option{{Value: filters.All, Label: "Todos"}}
	}

	return &filters.Panel{
		Filters: []filters.Filter{
			{Key: "year", Label: "Año", Type: filters.Select, Options: years},
			{Key: "granularity", Label: "Periodicidad", Type: filters.Select, Options: granularityOptions},
			costCenter,
			category,
			{Key: "date", Label: "Fechas", Type: filters.DateRange},
			{Key: "search", Label: "Buscar", Type: filters.Search, Placeholder: "Descripción o categoría"},
		},
		Logger: s.logger.WithComponent(applog.ComponentFilters),
	}
}

func (s *Server) costCenterOptions(ctx context.Context) ([]filters.Option, error) {
	centers, err := s.deps.Catalog.CostCenters(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([]filters.Option, 0, len(centers)+1)
	opts = append(opts, filters.Option{Value: filters.All, Label: "Todos"})
	for _, cc := range centers {
		opts = append(opts, filters.Option{Value: strconv.FormatInt(cc.ID, 10), Label: cc.Code + " - " + cc.Name})
	}
	return opts, nil
}

func (s *Server) categoryOptions(kind core.ReportKind) func(context.Context) ([]filters.Option, error) {
	erpKind := "expense"
	if kind == core.IncomeReport {
		erpKind = "income"
	}
	return func(ctx context.Context) ([]filters.Option, error) {
		cats, err := s.deps.Catalog.Categories(ctx, erpKind)
		if err != nil {
			return nil, err
		}
		var opts []filters.Option
		if kind == core.CostsReport {
			for _, c := range costCategories {
				opts = append(opts, filters.Option{Value: c, Label: c})
			}
		}
		for _, c := range cats {
			opts = append(opts, filters.Option{Value: c.Name, Label: c.Name})
		}
		return opts, nil
	}
}

// reportQuery reads the panel's filters and the page from the query string.
func (s *Server) reportQuery(r *http.Request, kind core.ReportKind) (services.ReportQuery, filters.Values) {
	q := r.URL.Query()
	values := s.panel(kind).FromQuery(q)
	if p := q.Get("page"); p != "" {
		values["page"] = p
	}
	return services.ParseReportQuery(values), values
}

type queryBody struct {
	Year        int      `json:"year"`
	Granularity string   `json:"granularity"`
	CostCenter  string   `json:"costCenterId,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Search      string   `json:"search,omitempty"`
	Page        int      `json:"page"`
	Active      int      `json:"activeFilters"`
}

func newQueryBody(q services.ReportQuery, values filters.Values) queryBody {
	return queryBody{
		Year:        q.Year,
		Granularity: string(q.Granularity),
		CostCenter:  q.CostCenter,
		Categories:  q.Categories,
		Search:      q.Search,
		Page:        q.Page,
		Active:      filters.ActiveCount(values),
	}
}

// sectionBody is a dashboard section as JSON: data or a user-facing error.
type sectionBody struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func sectionOf[T any](sec services.Section[T], conv func(T) any) sectionBody {
	if !sec.OK() {
		return sectionBody{Error: erp.UserMessage(sec.Err)}
	}
	if conv == nil {
		return sectionBody{Data: sec.Data}
	}
	return sectionBody{Data: conv(sec.Data)}
}

// unauthorized returns the first error that is an expired session, so a
// dashboard whose sections all failed on the session redirects to login.
func unauthorized(errs ...error) error {
	for _, err := range errs {
		if errors.Is(err, erp.ErrUnauthorized) {
			return err
		}
	}
	return nil
}

type matrixRow struct {
	Category string                `json:"category"`
	Amounts  map[string]core.Money `json:"amounts"`
	Total    core.Money            `json:"total"`
	Badge    report.Severity       `json:"badge"`
}

type matrixBody struct {
	Periods      []periods.Period      `json:"periods"`
	Rows         []matrixRow           `json:"rows"`
	PeriodTotals map[string]core.Money `json:"periodTotals"`
	Total        core.Money            `json:"total"`
	Badge        report.Severity       `json:"badge"`
	Skipped      int                   `json:"skipped,omitempty"`
}

func newMatrixBody(m report.Matrix, ctx report.Context) matrixBody {
	body := matrixBody{
		Periods:      m.Periods,
		Rows:         make([]matrixRow, 0, len(m.Rows)),
		PeriodTotals: m.PeriodTotals,
		Total:        m.Total,
		Badge:        report.Badge(m.Total, ctx),
		Skipped:      m.Skipped,
	}
	for _, row := range m.Rows {
		total := m.CategoryTotals[row.Category]
		body.Rows = append(body.Rows, matrixRow{
			Category: row.Category,
			Amounts:  row.Amounts,
			Total:    total,
			Badge:    report.Badge(total, ctx),
		})
	}
	return body
}

type recentRowBody struct {
	ID          int64              `json:"id"`
	Date        string             `json:"date"`
	Category    string             `json:"category"`
	Description string             `json:"description"`
	Amount      core.Money         `json:"amount"`
	AmountText  string             `json:"amountText"`
	Status      core.StatusDisplay `json:"status"`
	Badge       report.Severity    `json:"badge"`
}

type pageItemBody struct {
	Number   int  `json:"number,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

type recentBody struct {
	Rows       []recentRowBody `json:"rows"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
	TotalItems int             `json:"totalItems"`
	Pages      []pageItemBody  `json:"pages"`
}

func pageItems(items []pagination.PageItem) []pageItemBody {
	out := make([]pageItemBody, 0, len(items))
	for _, it := range items {
		out = append(out, pageItemBody{Number: it.Number, Ellipsis: it.Ellipsis})
	}
	return out
}

func newRecentBody(t report.RecentTable) recentBody {
	body := recentBody{
		Rows:       make([]recentRowBody, 0, len(t.Rows)),
		Page:       t.Page,
		TotalPages: t.TotalPages,
		TotalItems: t.TotalItems,
		Pages:      pageItems(t.Pages),
	}
	for _, row := range t.Rows {
		body.Rows = append(body.Rows, recentRowBody{
			ID:          row.ID,
			Date:        row.Date,
			Category:    row.Category,
			Description: row.Description,
			Amount:      row.Amount.Amount,
			AmountText:  row.Amount.Text,
			Status:      row.Status,
			Badge:       row.Badge,
		})
	}
	return body
}

// recentStatus picks the badge for a line: factoring state for income,
// payroll state when the ERP sends one, neutral text otherwise.
func recentStatus(it core.LineItem) core.StatusDisplay {
	switch {
	case it.Factoring != "":
		return it.Factoring.Display()
	case it.Status == "":
		return core.StatusDisplay{Variant: core.VariantNeutral}
	case core.RemuneracionStatus(it.Status).Known():
		return core.RemuneracionStatus(it.Status).Display()
	default:
		return core.StatusDisplay{Label: it.Status, Variant: core.VariantNeutral}
	}
}

func (s *Server) recentTable(title string, items []core.LineItem, page int) report.RecentTable {
	return report.NewRecentTable(title, items, page, s.cfg.RecentPageSize, recentStatus)
}

// handlePeriods lists the report columns for a granularity and year.
func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g := periods.ParseGranularity(q.Get("granularity"))
	year := queryInt(q, "year", periods.CurrentYear())
	if year < 2000 || year > 2100 {
		s.badRequest(w, r, "Año inválido.")
		return
	}
	respond(w, r, http.StatusOK, map[string]any{
		"granularity": g,
		"year":        year,
		"periods":     periods.Generate(g, year),
	})
}

func (s *Server) handleCostReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Costs == nil {
		s.writeError(w, r, errUnavailable)
		return
	}
	q, values := s.reportQuery(r, core.CostsReport)
	view := s.deps.Costs.Load(r.Context(), q)
	if err := unauthorized(view.CostCenters.Err, view.Matrix.Err, view.Records.Err); err != nil {
		s.writeError(w, r, err)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	respond(w, r, http.StatusOK, map[string]any{
		"query":       newQueryBody(q, values),
		"periods":     view.Periods,
		"costCenters": sectionOf(view.CostCenters, nil),
		"matrix": sectionOf(view.Matrix, func(m report.Matrix) any {
			return newMatrixBody(m, report.ExpenseContext)
		}),
		"records": sectionOf(view.Records, func(items []core.LineItem) any {
			return newRecentBody(s.recentTable("", items, q.Page))
		}),
	})
}

type factoringBody struct {
	Pending   core.Money `json:"pending"`
	Factored  core.Money `json:"factored"`
	Collected core.Money `json:"collected"`
	Total     core.Money `json:"total"`
	Count     int        `json:"count"`
}

func (s *Server) handleIncomeReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Income == nil {
		s.writeError(w, r, errUnavailable)
		return
	}
	q, values := s.reportQuery(r, core.IncomeReport)
	view := s.deps.Income.Load(r.Context(), q)
	if err := unauthorized(view.CostCenters.Err, view.Matrix.Err, view.Factoring.Err); err != nil {
		s.writeError(w, r, err)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	respond(w, r, http.StatusOK, map[string]any{
		"query":       newQueryBody(q, values),
		"periods":     view.Periods,
		"costCenters": sectionOf(view.CostCenters, nil),
		"matrix": sectionOf(view.Matrix, func(m report.Matrix) any {
			return newMatrixBody(m, report.IncomeContext)
		}),
		"records": sectionOf(view.Records, func(items []core.LineItem) any {
			return newRecentBody(s.recentTable("", items, q.Page))
		}),
		"factoring": sectionOf(view.Factoring, func(f core.FactoringSummary) any {
			return factoringBody{Pending: f.Pending, Factored: f.Factored, Collected: f.Collected, Total: f.Total(), Count: f.Count}
		}),
	})
}

// matrix builds the aggregated report of kind.
func (s *Server) matrix(ctx context.Context, kind core.ReportKind, q services.ReportQuery) (report.Matrix, error) {
	if kind == core.IncomeReport {
		if s.deps.Income == nil {
			return report.Matrix{}, errUnavailable
		}
		return s.deps.Income.Matrix(ctx, q)
	}
	if s.deps.Costs == nil {
		return report.Matrix{}, errUnavailable
	}
	return s.deps.Costs.Matrix(ctx, q)
}

func (s *Server) recent(ctx context.Context, kind core.ReportKind, q services.ReportQuery) ([]core.LineItem, error) {
	if kind == core.IncomeReport {
		if s.deps.Income == nil {
			return nil, errUnavailable
		}
		return s.deps.Income.Recent(ctx, q)
	}
	if s.deps.Costs == nil {
		return nil, errUnavailable
	}
	return s.deps.Costs.Recent(ctx, q)
}

func tableTitle(kind core.ReportKind, q services.ReportQuery) string {
	for _, o := range granularityOptions {
		if o.Value == string(q.Granularity) {
			return fmt.Sprintf("%s %d · %s", kind.Label(), q.Year, o.Label)
		}
	}
	return fmt.Sprintf("%s %d", kind.Label(), q.Year)
}

func recentTitle(kind core.ReportKind) string {
	if kind == core.IncomeReport {
		return "Ingresos recientes"
	}
	return "Movimientos recientes"
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	kind, ok := reportKind(r.URL.Query().Get("kind"))
	if !ok {
		s.badRequest(w, r, "Tipo de reporte inválido.")
		return
	}
	q, _ := s.reportQuery(r, kind)
	items, err := s.recent(r.Context(), kind, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newRecentBody(s.recentTable(recentTitle(kind), items, q.Page)))
}

// handleReportPDF renders the financial table of a report as a PDF download.
func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	kind, ok := reportKind(chi.URLParam(r, "kind"))
	if !ok {
		fail(w, r, http.StatusNotFound, APIError{Code: CodeNotFound, Message: "Reporte no encontrado."})
		return
	}
	q, _ := s.reportQuery(r, kind)
	m, err := s.matrix(r.Context(), kind, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	table := report.NewFinancialTable(tableTitle(kind, q), reportContext(kind), m)
	var buf bytes.Buffer
	meta := pdf.Meta{Organization: s.tenant(r).Name, Generated: time.Now()}
	if err := pdf.RenderFinancialTable(&buf, table, meta); err != nil {
		s.writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s-%d-%s.pdf", kind, q.Year, q.Granularity)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Report PDF rendered",
		applog.FieldReportKind, kind,
		applog.FieldYear, q.Year,
		applog.FieldGranularity, q.Granularity,
		"bytes", buf.Len())
}

// withQuery returns path with the request's query, key set to value.
func withQuery(path string, q url.Values, key, value string) string {
	c := url.Values{}
	for k, v := range q {
		c[k] = v
	}
	c.Set(key, value)
	return path + "?" + c.Encode()
}

func (s *Server) handleFinancialTablePartial(w http.ResponseWriter, r *http.Request) {
	kind, ok := reportKind(r.URL.Query().Get("kind"))
	if !ok {
		ErrorBanner(http.StatusBadRequest, "Tipo de reporte inválido.", "").Write(w)
		return
	}
	q, _ := s.reportQuery(r, kind)
	m, err := s.matrix(r.Context(), kind, q)
	if err != nil {
		s.writePartialError(w, r, err)
		return
	}
	s.render(w, r, "financial_table.html", struct {
		Table  report.FinancialTable
		PDFURL string
	}{
		Table:  report.NewFinancialTable(tableTitle(kind, q), reportContext(kind), m),
		PDFURL: "/api/reports/" + string(kind) + ".pdf?" + r.URL.RawQuery,
	})
}

type pageLink struct {
	Number   int
	Ellipsis bool
	Current  bool
	URL      string
}

func (s *Server) handleRecentTablePartial(w http.ResponseWriter, r *http.Request) {
	kind, ok := reportKind(r.URL.Query().Get("kind"))
	if !ok {
		ErrorBanner(http.StatusBadRequest, "Tipo de reporte inválido.", "").Write(w)
		return
	}
	q, _ := s.reportQuery(r, kind)
	items, err := s.recent(r.Context(), kind, q)
	if err != nil {
		s.writePartialError(w, r, err)
		return
	}
	t := s.recentTable(recentTitle(kind), items, q.Page)
	links := make([]pageLink, 0, len(t.Pages))
	for _, p := range t.Pages {
		l := pageLink{Number: p.Number, Ellipsis: p.Ellipsis, Current: p.Number == t.Page}
		if !p.Ellipsis {
			l.URL = withQuery("/ui/recent-table", r.URL.Query(), "page", strconv.Itoa(p.Number))
		}
		links = append(links, l)
	}
	var prev, next string
	if t.HasPrev {
		prev = withQuery("/ui/recent-table", r.URL.Query(), "page", strconv.Itoa(t.Page-1))
	}
	if t.HasNext {
		next = withQuery("/ui/recent-table", r.URL.Query(), "page", strconv.Itoa(t.Page+1))
	}
	s.render(w, r, "recent_table.html", struct {
		Table      report.RecentTable
		Links      []pageLink
		Prev, Next string
	}{Table: t, Links: links, Prev: prev, Next: next})
}

// TriggerFiltersChanged tells the report partials to reload with the panel's
// current values.
const TriggerFiltersChanged = "filters:changed"

// msView is the render state of one multi-select control.
type msView struct {
	Open  bool
	Chips []multiselect.Option
}

// handleFiltersPartial renders the filter panel. Multi-select dropdowns are
// driven from the server: each "ms" parameter is one event, written
// <key>:toggle, <key>:pick:<value>, <key>:remove:<value> or <key>:close, and
// is replayed on a control rebuilt from the submitted selection and state.
func (s *Server) handleFiltersPartial(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, ok := reportKind(q.Get("kind"))
	if !ok {
		ErrorBanner(http.StatusBadRequest, "Tipo de reporte inválido.", "").Write(w)
		return
	}
	panel := s.panel(kind)
	values := panel.FromQuery(q)
	if values.String("costCenterId") == "" {
		values["costCenterId"] = filters.All
	}
	if values.String("year") == "" {
		values["year"] = strconv.Itoa(periods.CurrentYear())
	}
	if values.String("granularity") == "" {
		values["granularity"] = string(periods.Month)
	}
	view := panel.Render(r.Context(), values)

	selectionChanged := false
	panel.OnChange = func(key string, value any) {
		selectionChanged = true
		if sel, _ := value.([]string); len(sel) == 0 {
			delete(values, key)
			return
		}
		values[key] = value
	}
	multi := map[string]msView{}
	controls := map[string]*multiselect.Control{}
	for _, f := range view.Filters {
		if f.Type != filters.MultiSelect {
			continue
		}
		opts := make([]multiselect.Option, 0, len(f.Options))
		for _, o := range f.Options {
			opts = append(opts, multiselect.Option{Value: o.Value, Text: o.Label})
		}
		key := f.Key
		ctrl := multiselect.New(opts, func(sel []string) { panel.Change(key, sel) })
		ctrl.SyncDefault(values.Strings(key))
		if q.Get(key+"_state") == multiselect.Open.String() {
			ctrl.Toggle()
		}
		controls[key] = ctrl
	}
	for _, raw := range q["ms"] {
		applyMultiSelectEvent(controls, raw)
	}
	for key, ctrl := range controls {
		multi[key] = msView{Open: ctrl.IsOpen(), Chips: ctrl.Chips()}
	}
	if selectionChanged {
		view = panel.Render(r.Context(), values)
	}

	// A refresh carries the panel's own form. Opening or closing a dropdown
	// leaves the report unchanged.
	if q.Has("refresh") && (!q.Has("ms") || selectionChanged) {
		w.Header().Set("HX-Trigger-After-Swap", TriggerFiltersChanged)
	}
	s.render(w, r, "filters.html", struct {
		Kind  core.ReportKind
		View  filters.View
		Multi map[string]msView
	}{Kind: kind, View: view, Multi: multi})
}

// applyMultiSelectEvent replays one dropdown event. Opening a dropdown closes
// the others.
func applyMultiSelectEvent(controls map[string]*multiselect.Control, raw string) {
	parts := strings.SplitN(raw, ":", 3)
	ctrl, ok := controls[parts[0]]
	if !ok || len(parts) < 2 {
		return
	}
	var value string
	if len(parts) == 3 {
		value = parts[2]
	}
	switch parts[1] {
	case "toggle":
		ctrl.Toggle()
		if ctrl.IsOpen() {
			for key, other := range controls {
				if key != parts[0] {
					other.OutsideClick()
				}
			}
		}
	case "pick":
		ctrl.ClickOption(value)
	case "remove":
		ctrl.RemoveChip(value)
	case "close":
		ctrl.OutsideClick()
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	kind, ok := reportKind(r.URL.Query().Get("kind"))
	if !ok {
		kind = core.CostsReport
	}
	t := s.tenant(r)
	s.render(w, r, "index.html", struct {
		Tenant  tenant.Tenant
		Tenants []tenant.Tenant
		Theme   template.CSS
		Kind    core.ReportKind
		Query   string
		Exports bool
	}{
		Tenant:  t,
		Tenants: s.deps.Tenants.Available(),
		Theme:   template.CSS(t.Theme.CSSVariables()),
		Kind:    kind,
		Query:   "kind=" + string(kind),
		Exports: s.deps.Exports != nil && t.Enabled("exports"),
	})
}

package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"backoffice/internal/core"
	"backoffice/internal/filters"
	applog "backoffice/internal/log"
	"backoffice/internal/periods"
	"backoffice/internal/report"
)

// Category names for cost sources that carry no category of their own.
const (
	CategoryRemuneraciones = "Remuneraciones"
	CategoryPrevisionales  = "Previsionales"
	CategoryFixedCosts     = "Costos Fijos"
	CategoryPurchaseOrders = "Órdenes de Compra"
)

// ReportQuery is the filter state of a dashboard.
type ReportQuery struct {
	Year        int
	Granularity periods.Granularity
	// CostCenter is an id, or "" for every cost center.
	CostCenter string
	Categories []string
	Search     string
	// From and To bound item dates, both inclusive; zero means unbounded.
	From, To core.Date
	Page     int
}

// ParseReportQuery reads a query from filter values, defaulting the year to
// the current one and the granularity to month.
func ParseReportQuery(v filters.Values) ReportQuery {
	q := ReportQuery{
		Year:        periods.CurrentYear(),
		Granularity: periods.ParseGranularity(v.String("granularity")),
		Categories:  restricting(v.Strings("category")),
		Search:      strings.TrimSpace(v.String("search")),
		Page:        1,
	}
	if v.Restricts("costCenterId") {
		q.CostCenter = v.String("costCenterId")
	}
	if y, err := strconv.Atoi(v.String("year")); err == nil && y >= 2000 && y <= 2100 {
		q.Year = y
	}
	if p, err := strconv.Atoi(v.String("page")); err == nil && p > 0 {
		q.Page = p
	}
	if span := v.Strings("date"); len(span) == 2 {
		q.From, _ = core.ParseDate(span[0])
		q.To, _ = core.ParseDate(span[1])
	}
	return q
}

// restricting drops "" and the "all" sentinel from a multi-select value.
func restricting(values []string) []string {
	var out []string
	for _, s := range values {
		if s != "" && s != filters.All {
			out = append(out, s)
		}
	}
	return out
}

func (q ReportQuery) costCenterID() (int64, bool) {
	if q.CostCenter == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(q.CostCenter, 10, 64)
	return id, err == nil
}

// erpQuery asks for the whole span of the report's periods. A weekly report
// can end in January of the next year, so year is only sent when the span
// stays within one year.
func (q ReportQuery) erpQuery() url.Values {
	v := url.Values{}
	if ps := periods.Generate(q.Granularity, q.Year); len(ps) > 0 {
		from, to := ps[0].Start, ps[len(ps)-1].End
		v.Set("date_from", from.ISO())
		v.Set("date_to", to.ISO())
		if from.Year() == to.Year() {
			v.Set("year", strconv.Itoa(from.Year()))
		}
	} else {
		v.Set("year", strconv.Itoa(q.Year))
	}
	if id, ok := q.costCenterID(); ok {
		v.Set("cost_center_id", strconv.FormatInt(id, 10))
	}
	return v
}

// keep applies the cost center, date, category and search filters.
func (q ReportQuery) keep(it core.LineItem) bool {
	if id, ok := q.costCenterID(); ok && it.CostCenterID != id {
		return false
	}
	if !q.From.IsEmpty() && it.Date.Before(q.From.Time) {
		return false
	}
	if !q.To.IsEmpty() && it.Date.After(q.To.Time) {
		return false
	}
	if len(q.Categories) > 0 {
		found := false
		for _, c := range q.Categories {
			if c == it.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Search != "" {
		s := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(it.Description), s) && !strings.Contains(strings.ToLower(it.Category), s) {
			return false
		}
	}
	return true
}

// Section is one independently loaded part of a dashboard.
type Section[T any] struct {
	Data T
	Err  error
}

func (s Section[T]) OK() bool { return s.Err == nil }

type CostSources struct {
	CostCenters    CostCenterSource
	Lines          Lister[core.LineItem]
	FixedCosts     Lister[core.LineItem]
	PurchaseOrders Lister[core.LineItem]
	Remuneraciones Lister[core.Remuneracion]
	Previsionales  Lister[core.Previsional]
}

// CostDashboard loads the cost report: cost center options, the category x
// period matrix and the detailed records.
type CostDashboard struct {
	src    CostSources
	logger *applog.Logger
}

func NewCostDashboard(src CostSources, logger *applog.Logger) *CostDashboard {
	if logger == nil {
		logger = applog.Discard()
	}
	return &CostDashboard{src: src, logger: logger.WithComponent(applog.ComponentDashboard)}
}

type CostView struct {
	Query       ReportQuery
	Periods     []periods.Period
	CostCenters Section[[]core.CostCenter]
	Matrix      Section[report.Matrix]
	Records     Section[[]core.LineItem]
}

// Load fetches every section concurrently. A failing section records its
// error and leaves the others intact.
func (d *CostDashboard) Load(ctx context.Context, q ReportQuery) CostView {
	ps := periods.Generate(q.Granularity, q.Year)
	view := CostView{Query: q, Periods: ps}

	var g errgroup.Group
	if d.src.CostCenters != nil {
		g.Go(func() error {
			ccs, err := d.src.CostCenters.CostCenters(ctx)
			view.CostCenters = Section[[]core.CostCenter]{Data: ccs, Err: err}
			return nil
		})
	}
	g.Go(func() error {
		items, err := d.Items(ctx, q)
		if err != nil {
			view.Matrix.Err = err
			return nil
		}
		view.Matrix.Data = report.Build(items, ps, nil)
		return nil
	})
	g.Go(func() error {
		items, err := d.fetchLines(ctx, q)
		if err != nil {
			view.Records.Err = err
			return nil
		}
		sortRecent(items)
		view.Records.Data = items
		return nil
	})
	g.Wait()

	d.logSections(ctx, q, map[string]error{
		"cost_centers": view.CostCenters.Err,
		"matrix":       view.Matrix.Err,
		"records":      view.Records.Err,
	})
	return view
}

// Matrix builds only the aggregated report, as used by exports.
func (d *CostDashboard) Matrix(ctx context.Context, q ReportQuery) (report.Matrix, error) {
	items, err := d.Items(ctx, q)
	if err != nil {
		return report.Matrix{}, err
	}
	return report.Build(items, periods.Generate(q.Granularity, q.Year), nil), nil
}

// Items gathers every cost source as line items, filtered by q.
func (d *CostDashboard) Items(ctx context.Context, q ReportQuery) ([]core.LineItem, error) {
	var (
		lines, fixed, orders []core.LineItem
		rems                 []core.Remuneracion
		prevs                []core.Previsional
	)
	query := q.erpQuery()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lines, err = list(gctx, d.src.Lines, query, "cashflow lines")
		return err
	})
	g.Go(func() (err error) {
		fixed, err = list(gctx, d.src.FixedCosts, query, "fixed costs")
		return err
	})
	g.Go(func() (err error) {
		orders, err = list(gctx, d.src.PurchaseOrders, query, "purchase order items")
		return err
	})
	g.Go(func() (err error) {
		rems, err = list(gctx, d.src.Remuneraciones, query, "remuneraciones")
		return err
	})
	g.Go(func() (err error) {
		prevs, err = list(gctx, d.src.Previsionales, query, "previsionales")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]core.LineItem, 0, len(lines)+len(fixed)+len(orders)+len(rems)+len(prevs))
	add := func(it core.LineItem) {
		it.Kind = core.Expense
		if q.keep(it) {
			items = append(items, it)
		}
	}
	for _, it := range lines {
		add(it)
	}
	for _, it := range fixed {
		it.Category = CategoryFixedCosts
		add(it)
	}
	for _, it := range orders {
		it.Category = CategoryPurchaseOrders
		add(it)
	}
	for _, r := range rems {
		if r.Status == core.RemuneracionRejected || r.Status == core.RemuneracionCancelled {
			continue
		}
		add(core.LineItem{
			ID:           r.ID,
			Category:     CategoryRemuneraciones,
			Description:  r.EmployeeName,
			Date:         core.NewDate(r.Year, r.Month, 1),
			Amount:       r.Total(),
			Status:       string(r.Status),
			CostCenterID: r.CostCenterID,
		})
	}
	for _, p := range prevs {
		add(core.LineItem{
			ID:           p.ID,
			Category:     CategoryPrevisionales,
			Description:  p.Type.Display().Label,
			Date:         p.Date,
			Amount:       p.Amount,
			CostCenterID: p.CostCenterID,
		})
	}
	return items, nil
}

// Recent returns the cashflow lines matching q, newest first.
func (d *CostDashboard) Recent(ctx context.Context, q ReportQuery) ([]core.LineItem, error) {
	items, err := d.fetchLines(ctx, q)
	if err != nil {
		return nil, err
	}
	sortRecent(items)
	return items, nil
}

func (d *CostDashboard) fetchLines(ctx context.Context, q ReportQuery) ([]core.LineItem, error) {
	lines, err := list(ctx, d.src.Lines, q.erpQuery(), "cashflow lines")
	if err != nil {
		return nil, err
	}
	out := lines[:0]
	for _, it := range lines {
		if q.keep(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (d *CostDashboard) logSections(ctx context.Context, q ReportQuery, errs map[string]error) {
	for section, err := range errs {
		if err != nil {
			d.logger.WarnContext(ctx, "Dashboard section failed",
				applog.FieldSection, section,
				applog.FieldYear, q.Year,
				applog.FieldError, err)
		}
	}
}

func list[T any](ctx context.Context, l Lister[T], q url.Values, what string) ([]T, error) {
	if l == nil {
		return nil, nil
	}
	out, err := l.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	return out, nil
}

// sortRecent orders items newest first, ties by id descending.
func sortRecent(items []core.LineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date.Time) {
			return items[i].Date.After(items[j].Date.Time)
		}
		return items[i].ID > items[j].ID
	})
}

type IncomeSources struct {
	CostCenters CostCenterSource
	Income      Lister[core.LineItem]
	Factoring   Lister[core.LineItem]
}

// IncomeDashboard loads the income matrix by category with a factoring
// summary.
type IncomeDashboard struct {
	src    IncomeSources
	logger *applog.Logger
}

func NewIncomeDashboard(src IncomeSources, logger *applog.Logger) *IncomeDashboard {
	if logger == nil {
		logger = applog.Discard()
	}
	return &IncomeDashboard{src: src, logger: logger.WithComponent(applog.ComponentDashboard)}
}

type IncomeView struct {
	Query       ReportQuery
	Periods     []periods.Period
	CostCenters Section[[]core.CostCenter]
	Matrix      Section[report.Matrix]
	Records     Section[[]core.LineItem]
	Factoring   Section[core.FactoringSummary]
}

func (d *IncomeDashboard) Load(ctx context.Context, q ReportQuery) IncomeView {
	ps := periods.Generate(q.Granularity, q.Year)
	view := IncomeView{Query: q, Periods: ps}

	var g errgroup.Group
	if d.src.CostCenters != nil {
		g.Go(func() error {
			ccs, err := d.src.CostCenters.CostCenters(ctx)
			view.CostCenters = Section[[]core.CostCenter]{Data: ccs, Err: err}
			return nil
		})
	}
	g.Go(func() error {
		items, err := d.Items(ctx, q)
		if err != nil {
			view.Matrix.Err, view.Records.Err = err, err
			return nil
		}
		view.Matrix.Data = report.Build(items, ps, nil)
		recent := append([]core.LineItem(nil), items...)
		sortRecent(recent)
		view.Records.Data = recent
		return nil
	})
	g.Go(func() error {
		items, err := list(ctx, d.src.Factoring, q.erpQuery(), "factoring")
		if err != nil {
			view.Factoring.Err = err
			return nil
		}
		var s core.FactoringSummary
		for _, it := range items {
			if q.keep(it) {
				s.Add(it)
			}
		}
		view.Factoring.Data = s
		return nil
	})
	g.Wait()

	for section, err := range map[string]error{"matrix": view.Matrix.Err, "factoring": view.Factoring.Err, "cost_centers": view.CostCenters.Err} {
		if err != nil {
			d.logger.WarnContext(ctx, "Dashboard section failed", applog.FieldSection, section, applog.FieldError, err)
		}
	}
	return view
}

func (d *IncomeDashboard) Items(ctx context.Context, q ReportQuery) ([]core.LineItem, error) {
	raw, err := list(ctx, d.src.Income, q.erpQuery(), "income")
	if err != nil {
		return nil, err
	}
	items := make([]core.LineItem, 0, len(raw))
	for _, it := range raw {
		it.Kind = core.Income
		if q.keep(it) {
			items = append(items, it)
		}
	}
	return items, nil
}

// Recent returns the income items matching q, newest first.
func (d *IncomeDashboard) Recent(ctx context.Context, q ReportQuery) ([]core.LineItem, error) {
	items, err := d.Items(ctx, q)
	if err != nil {
		return nil, err
	}
	sortRecent(items)
	return items, nil
}

func (d *IncomeDashboard) Matrix(ctx context.Context, q ReportQuery) (report.Matrix, error) {
	items, err := d.Items(ctx, q)
	if err != nil {
		return report.Matrix{}, err
	}
	return report.Build(items, periods.Generate(q.Granularity, q.Year), nil), nil
}

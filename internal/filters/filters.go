// Package filters describes a configuration-driven filter panel. The panel
// holds no filter values; the owner keeps them and receives every change.
package filters

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	applog "backoffice/internal/log"
)

type Type string

const (
	Select      Type = "select"
	MultiSelect Type = "multiselect"
	DateInput   Type = "date"
	DateRange   Type = "daterange"
	Search      Type = "search"
)

// All is the sentinel option value meaning "no restriction". The panel treats
// it as an ordinary value.
const All = "all"

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Values are owned by the panel's consumer, keyed by filter key.
type Values map[string]any

// String returns the value for key as a string; slices are joined by commas.
func (v Values) String(key string) string {
	switch x := v[key].(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, ",")
	default:
		return fmt.Sprint(x)
	}
}

// Strings returns the value for key as a list.
func (v Values) Strings(key string) []string {
	switch x := v[key].(type) {
	case []string:
		return x
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	default:
		return nil
	}
}

// Restricts reports whether key holds a value other than "" and All.
func (v Values) Restricts(key string) bool {
	s := v.String(key)
	return s != "" && s != All
}

// Filter is the declaration of one control.
type Filter struct {
	Key         string
	Label       string
	Type        Type
	Placeholder string
	Options     []Option
	// OptionsFunc loads options lazily; it wins over Options when set.
	OptionsFunc       func(ctx context.Context) ([]Option, error)
	Disabled          bool
	Loading           bool
	ConditionalRender func(Values) bool
}

// Panel is the filter configuration plus the owner's change handler.
type Panel struct {
	Filters  []Filter
	OnChange func(key string, value any)
	Logger   *applog.Logger
}

func (p *Panel) logger() *applog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return applog.Discard()
}

// Change forwards a value change to the owner. Unknown and disabled filters
// are ignored.
func (p *Panel) Change(key string, value any) bool {
	f, ok := p.lookup(key)
	if !ok || f.Disabled || p.OnChange == nil {
		return false
	}
	p.OnChange(key, value)
	return true
}

func (p *Panel) lookup(key string) (Filter, bool) {
	for _, f := range p.Filters {
		if f.Key == key {
			return f, true
		}
	}
	return Filter{}, false
}

// Visible returns the filters whose ConditionalRender accepts values.
func (p *Panel) Visible(values Values) []Filter {
	out := make([]Filter, 0, len(p.Filters))
	for _, f := range p.Filters {
		if f.ConditionalRender != nil && !f.ConditionalRender(values) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Columns is the grid width for the visible filters.
func (p *Panel) Columns(values Values) int {
	return columnsFor(len(p.Visible(values)))
}

func columnsFor(n int) int {
	switch {
	case n <= 1:
		return 1
	case n <= 4:
		return n
	default:
		return 6
	}
}

// ActiveCount counts values that are set and non-empty. All counts as active.
func ActiveCount(values Values) int {
	n := 0
	for _, v := range values {
		switch x := v.(type) {
		case nil:
			continue
		case string:
			if x == "" {
				continue
			}
		case []string:
			if len(x) == 0 {
				continue
			}
		}
		n++
	}
	return n
}

// ResolveOptions returns the filter's options, loading them through
// OptionsFunc when set. Loader failures and panics yield an empty list.
func (p *Panel) ResolveOptions(ctx context.Context, f Filter) (opts []Option) {
	if f.OptionsFunc == nil {
		return f.Options
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger().ErrorContext(ctx, "Filter options loader panicked",
				applog.FieldFilter, f.Key, "panic", r)
			opts = []Option{}
		}
	}()
	loaded, err := f.OptionsFunc(ctx)
	if err != nil {
		p.logger().ErrorContext(ctx, "Failed to load filter options",
			applog.FieldFilter, f.Key, applog.FieldError, err)
		return []Option{}
	}
	return loaded
}

// FromQuery reads the panel's keys from a query string. Multi-select and
// date-range filters keep every value; others keep the first.
func (p *Panel) FromQuery(q url.Values) Values {
	values := Values{}
	for _, f := range p.Filters {
		switch f.Type {
		case MultiSelect:
			var list []string
			for _, raw := range q[f.Key] {
				for _, s := range strings.Split(raw, ",") {
					if s = strings.TrimSpace(s); s != "" {
						list = append(list, s)
					}
				}
			}
			if len(list) > 0 {
				values[f.Key] = list
			}
		case DateRange:
			from, to := q.Get(f.Key+"_from"), q.Get(f.Key+"_to")
			if from != "" || to != "" {
				values[f.Key] = []string{from, to}
			}
		default:
			if q.Has(f.Key) {
				values[f.Key] = strings.TrimSpace(q.Get(f.Key))
			}
		}
	}
	return values
}

// ViewFilter is a filter with resolved options and the current value, ready
// for rendering.
type ViewFilter struct {
	Filter
	Options  []Option
	Value    string
	Selected map[string]bool
	// From and To split a date range value for its two inputs.
	From, To string
}

// View is the panel's render model.
type View struct {
	Filters     []ViewFilter
	Columns     int
	ActiveCount int
}

// Render resolves options of the visible filters for values.
func (p *Panel) Render(ctx context.Context, values Values) View {
	visible := p.Visible(values)
	v := View{Columns: columnsFor(len(visible)), ActiveCount: ActiveCount(values)}
	for _, f := range visible {
		vf := ViewFilter{Filter: f, Value: values.String(f.Key), Selected: map[string]bool{}}
		if !f.Loading {
			vf.Options = p.ResolveOptions(ctx, f)
		}
		for _, s := range values.Strings(f.Key) {
			vf.Selected[s] = true
		}
		if f.Type == DateRange {
			if span := values.Strings(f.Key); len(span) == 2 {
				vf.From, vf.To = span[0], span[1]
			}
		}
		v.Filters = append(v.Filters, vf)
	}
	return v
}

// Package tenant resolves the organization a browser works in. Each browser
// picks its own tenant; a Tenant is an immutable snapshot handed to one
// request.
package tenant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	applog "backoffice/internal/log"
)

// CookieName is the browser cookie holding the chosen tenant id. The same
// name prefixes the server-side copy of each session's choice.
const CookieName = "currentTenant"

var ErrUnknownTenant = errors.New("unknown tenant")

type Theme struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
}

type Tenant struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Theme    Theme           `json:"theme"`
	Features map[string]bool `json:"features,omitempty"`
}

// Enabled reports whether the named feature flag is on.
func (t Tenant) Enabled(feature string) bool {
	return t.Features[feature]
}

// CSSVariables renders the theme as custom properties for the layout root.
func (th Theme) CSSVariables() string {
	var b strings.Builder
	for _, v := range [][2]string{
		{"--color-primary", th.Primary},
		{"--color-secondary", th.Secondary},
		{"--color-accent", th.Accent},
	} {
		if v[1] == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s: %s;", v[0], v[1])
	}
	return b.String()
}

// Defaults are the tenants offered when none is configured.
func Defaults() []Tenant {
	return []Tenant{
		{
			ID:       "sparktech",
			Name:     "SparkTech",
			Theme:    Theme{Primary: "#1e40af", Secondary: "#64748b", Accent: "#f59e0b"},
			Features: map[string]bool{"factoring": true, "projects": true, "exports": true},
		},
		{
			ID:       "constructora",
			Name:     "Constructora Andes",
			Theme:    Theme{Primary: "#065f46", Secondary: "#6b7280", Accent: "#dc2626"},
			Features: map[string]bool{"projects": true},
		},
	}
}

// Store persists each session's tenant choice. storage.SQLiteRepository and
// storage.MemoryStore satisfy it.
type Store interface {
	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, key, value string) error
}

// StateKey is the client state key a session's choice is stored under. The
// session value is hashed so raw session tokens never reach storage.
func StateKey(session string) string {
	sum := sha256.Sum256([]byte(session))
	return CookieName + ":" + hex.EncodeToString(sum[:8])
}

// Holder is the registry of available tenants. It keeps no current tenant;
// Resolve picks one per request.
type Holder struct {
	available []Tenant
	store     Store
	logger    *applog.Logger
}

// NewHolder uses Defaults() when available is empty. The first available
// tenant is the default.
func NewHolder(available []Tenant, store Store, logger *applog.Logger) *Holder {
	if len(available) == 0 {
		available = Defaults()
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Holder{
		available: available,
		store:     store,
		logger:    logger.WithComponent(applog.ComponentTenant),
	}
}

// Default returns the tenant used when a browser has not chosen one.
func (h *Holder) Default() Tenant {
	return clone(h.available[0])
}

// Available lists the tenants that can be switched to.
func (h *Holder) Available() []Tenant {
	out := make([]Tenant, len(h.available))
	for i, t := range h.available {
		out[i] = clone(t)
	}
	return out
}

func (h *Holder) find(id string) (Tenant, bool) {
	for _, t := range h.available {
		if t.ID == id {
			return clone(t), true
		}
	}
	return Tenant{}, false
}

// Resolve returns the tenant for one browser. choice is the value of its
// CookieName cookie; when it is empty the choice saved for session is used.
// A malformed or unknown value falls back to the default with a warning.
func (h *Holder) Resolve(ctx context.Context, choice, session string) Tenant {
	fallback := func(reason string, err error) Tenant {
		t := h.Default()
		args := []any{"reason", reason, applog.FieldTenant, t.ID}
		if err != nil {
			args = append(args, applog.FieldError, err)
		}
		h.logger.WarnContext(ctx, "Using default tenant", args...)
		return t
	}

	if choice != "" {
		if t, ok := h.find(choice); ok {
			return t
		}
		return fallback("unknown tenant cookie", nil)
	}
	if h.store == nil || session == "" {
		return h.Default()
	}
	raw, ok, err := h.store.GetState(ctx, StateKey(session))
	if err != nil {
		return fallback("state read failed", err)
	}
	if !ok {
		return h.Default()
	}

	var saved Tenant
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return fallback("malformed saved tenant", err)
	}
	t, known := h.find(saved.ID)
	if !known {
		return fallback("saved tenant no longer available", nil)
	}
	return t
}

// Switch validates id and saves it as session's choice. The returned tenant
// is valid even if saving fails; the caller also hands it to the browser.
func (h *Holder) Switch(ctx context.Context, id, session string) (Tenant, error) {
	t, ok := h.find(id)
	if !ok {
		return Tenant{}, fmt.Errorf("%w: %s", ErrUnknownTenant, id)
	}
	h.logger.InfoContext(ctx, "Tenant switched", applog.FieldTenant, id)

	if h.store == nil || session == "" {
		return t, nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return t, fmt.Errorf("encode tenant: %w", err)
	}
	if err := h.store.SetState(ctx, StateKey(session), string(data)); err != nil {
		return t, fmt.Errorf("persist tenant: %w", err)
	}
	return t, nil
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying t.
func NewContext(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the tenant stored by NewContext.
func FromContext(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(ctxKey{}).(Tenant)
	return t, ok
}

func clone(t Tenant) Tenant {
	if t.Features != nil {
		f := make(map[string]bool, len(t.Features))
		for k, v := range t.Features {
			f[k] = v
		}
		t.Features = f
	}
	return t
}

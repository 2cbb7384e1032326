package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		key         string
		want        string
	}{
		{"json string", `{"id":"acme"}`, "application/json", "id", "acme"},
		{"json number", `{"year":2025}`, "application/json", "year", "2025"},
		{"json bool", `{"draft":true}`, "application/json", "draft", "true"},
		{"form", "id=acme&kind=costs", "application/x-www-form-urlencoded", "kind", "costs"},
		{"trimmed", `{"id":"  acme \u0007"}`, "application/json", "id", "acme"},
		{"missing", `{"id":"acme"}`, "application/json", "other", ""},
		{"empty body", "", "", "id", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)
			p := NewRequestBodyParser(r)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":`))
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err == nil {
		t.Fatal("Parse() error = nil, want error")
	}
	// A second call reports the same failure without reparsing.
	if err := p.Parse(); err == nil {
		t.Fatal("second Parse() error = nil, want error")
	}
}

func TestRequestBodyParser_Int(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("year=2024&bad=x"))
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if got := p.Int("year", 0); got != 2024 {
		t.Errorf("Int(year) = %d, want 2024", got)
	}
	if got := p.Int("bad", 7); got != 7 {
		t.Errorf("Int(bad) = %d, want default 7", got)
	}
	if got := p.Int("missing", 9); got != 9 {
		t.Errorf("Int(missing) = %d, want default 9", got)
	}
}

type decodeTarget struct {
	Name string `json:"name"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      string
		wantErr   bool
		wantEmpty bool
	}{
		{name: "valid", body: `{"name":"Ana"}`, want: "Ana"},
		{name: "unknown field", body: `{"name":"Ana","nmae":"x"}`, wantErr: true},
		{name: "empty", body: "", wantErr: true, wantEmpty: true},
		{name: "malformed", body: `{"name":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			got, err := decodeJSON[decodeTarget](r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantEmpty && !errors.Is(err, errEmptyBody) {
				t.Errorf("error = %v, want errEmptyBody", err)
			}
			if got.Name != tt.want {
				t.Errorf("Name = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func withRouteID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := withRouteID(httptest.NewRequest(http.MethodGet, "/", nil), tt.raw)
			got, err := pathID(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pathID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("pathID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	q := url.Values{"page": {" 3 "}, "bad": {"x"}}
	if got := queryInt(q, "page", 1); got != 3 {
		t.Errorf("queryInt(page) = %d, want 3", got)
	}
	if got := queryInt(q, "bad", 1); got != 1 {
		t.Errorf("queryInt(bad) = %d, want 1", got)
	}
}

func TestConfirmed(t *testing.T) {
	tests := map[string]bool{
		"/x?confirm=true": true,
		"/x?confirm=1":    true,
		"/x?confirm=no":   false,
		"/x":              false,
	}
	for target, want := range tests {
		r := httptest.NewRequest(http.MethodDelete, target, nil)
		if got := confirmed(r); got != want {
			t.Errorf("confirmed(%s) = %v, want %v", target, got, want)
		}
	}
}

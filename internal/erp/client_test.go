package erp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"backoffice/internal/cache"
	"backoffice/internal/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, append([]Option{WithHTTPClient(srv.Client())}, opts...)...)
}

func TestUnwrapEnvelopes(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    string
		logical bool
	}{
		{"jsonrpc result", `{"jsonrpc":"2.0","id":1,"result":[1,2]}`, `[1,2]`, false},
		{"jsonrpc wrapping success", `{"jsonrpc":"2.0","result":{"success":true,"data":{"id":3}}}`, `{"id":3}`, false},
		{"success envelope", `{"success":true,"data":[{"id":1}],"message":"ok"}`, `[{"id":1}]`, false},
		{"status envelope", `{"status":"success","data":{"id":9}}`, `{"id":9}`, false},
		{"bare object", `{"id":4,"name":"x"}`, `{"id":4,"name":"x"}`, false},
		{"bare array", `[{"id":1}]`, `[{"id":1}]`, false},
		{"jsonrpc error", `{"jsonrpc":"2.0","error":{"code":200,"message":"Odoo Server Error","data":{"message":"Registro bloqueado"}}}`, "", true},
		{"success false", `{"success":false,"message":"Monto inválido"}`, "", true},
		{"status error", `{"status":"error","message":"Periodo cerrado"}`, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := unwrap([]byte(tc.body))
			if tc.logical {
				var e *Error
				if !errors.As(err, &e) || !e.Logical || e.Message == "" {
					t.Fatalf("expected logical error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSessionExpiredRPCIsUnauthorized(t *testing.T) {
	_, err := unwrap([]byte(`{"jsonrpc":"2.0","error":{"code":100,"message":"Odoo Session Expired","data":{"name":"odoo.http.SessionExpiredException","message":"Session expired"}}}`))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestHTTPErrors(t *testing.T) {
	status := http.StatusUnauthorized
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"success":false,"message":"no session"}`))
	})

	err := c.Get(context.Background(), "/api/projects", nil, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Message != "no session" || e.Logical {
		t.Fatalf("unexpected error %#v", err)
	}

	status = http.StatusNotFound
	if _, err := c.Projects.Get(context.Background(), 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	status = http.StatusBadGateway
	err = c.Get(context.Background(), "/x", nil, nil)
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) || !errors.As(err, &e) || e.Status != http.StatusBadGateway {
		t.Fatalf("unexpected error %v", err)
	}
	if UserMessage(err) == "" {
		t.Fatalf("expected a banner message")
	}
}

func TestSessionCookieAndAPIKey(t *testing.T) {
	var gotCookie, gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCookie, gotKey = "", r.Header.Get(apiKeyHeader)
		if ck, err := r.Cookie("session_id"); err == nil {
			gotCookie = ck.Value
		}
		_, _ = w.Write([]byte(`[]`))
	}, WithAPIKey("worker-key"))

	ctx := WithSession(context.Background(), &http.Cookie{Name: "session_id", Value: "abc"})
	if _, err := c.Employees.List(ctx, nil); err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotCookie != "abc" || gotKey != "" {
		t.Fatalf("session requests must forward the cookie only, got cookie=%q key=%q", gotCookie, gotKey)
	}

	if _, err := c.Employees.List(context.Background(), nil); err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotCookie != "" || gotKey != "worker-key" {
		t.Fatalf("background requests should use the API key, got cookie=%q key=%q", gotCookie, gotKey)
	}
}

func TestContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Get(ctx, "/slow", nil, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCallRPC(t *testing.T) {
	var req map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"total":42}}`))
	})
	var out struct {
		Total int `json:"total"`
	}
	if err := c.CallRPC(context.Background(), "/web/dataset/call_kw", map[string]any{"model": "x"}, &out); err != nil {
		t.Fatalf("rpc: %v", err)
	}
	if out.Total != 42 || req["jsonrpc"] != "2.0" || req["method"] != "call" {
		t.Fatalf("unexpected exchange req=%v out=%v", req, out)
	}
}

func TestRemuneracionFieldMirroring(t *testing.T) {
	var posted map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &posted)
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":10,"employee_id":[3,"Ana"],"year":2025,"month":4,"sueldoLiquido":"850000.4","anticipo":150000,"status":"pending","payment_method":"transfer"}}`))
		default:
			_, _ = w.Write([]byte(`{"success":true,"data":[{"id":11,"employee_id":3,"year":2025,"month":5,"net_salary":900000,"sueldoLiquido":1,"advance_payment":false,"status":"weird"}]}`))
		}
	})

	created, err := c.Remuneraciones.Create(context.Background(), core.Remuneracion{
		EmployeeID: 3, Year: 2025, Month: 4,
		NetSalary: core.Money{Amount: 850000}, Advance: core.Money{Amount: 150000},
		Status: core.RemuneracionPending, PaymentMethod: core.PaymentTransfer,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, k := range []string{"net_salary", "sueldoLiquido"} {
		if posted[k] != float64(850000) {
			t.Fatalf("%s not mirrored: %v", k, posted)
		}
	}
	for _, k := range []string{"advance_payment", "anticipo"} {
		if posted[k] != float64(150000) {
			t.Fatalf("%s not mirrored: %v", k, posted)
		}
	}
	if created.ID != 10 || created.EmployeeName != "Ana" || created.NetSalary.Amount != 850000 || created.Total().Amount != 1000000 {
		t.Fatalf("unexpected created record %+v", created)
	}

	list, err := c.Remuneraciones.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	r := list[0]
	if r.NetSalary.Amount != 900000 || r.Advance.Amount != 0 {
		t.Fatalf("current field names should win: %+v", r)
	}
	if r.Status.Display().Label != "Borrador" {
		t.Fatalf("unknown status should fall back, got %+v", r.Status.Display())
	}
}

func TestPrevisionalDerivedPeriod(t *testing.T) {
	var posted map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&posted)
		_, _ = w.Write([]byte(`{"id":1,"employee_id":2,"cost_center_id":[5,"Obra"],"type":"afp","amount":"45000.00","date":"2025-03-31"}`))
	})
	p, err := c.Previsionales.Create(context.Background(), core.Previsional{
		EmployeeID: 2, CostCenterID: 5, Type: core.PrevisionalAFP,
		Amount: core.Money{Amount: 45000}, Date: core.NewDate(2025, 3, 31),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if posted["month"] != float64(3) || posted["year"] != float64(2025) || posted["date"] != "2025-03-31" {
		t.Fatalf("month/year not derived: %v", posted)
	}
	if p.CostCenterID != 5 || p.Amount.Amount != 45000 {
		t.Fatalf("unexpected record %+v", p)
	}
}

func TestLineItemsListShapes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/income") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("year") != "2025" {
			t.Errorf("query not forwarded: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"items":[{"id":1,"category":[4,"Ventas"],"name":"Factura 1","date":"2025-02-01","amount":1500.5,"state":"posted","factoring_status":"pending","project_id":false}],"total":1}}`))
	})
	items, err := c.Income.List(context.Background(), map[string][]string{"year": {"2025"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	it := items[0]
	if it.Kind != core.Income || it.Category != "Ventas" || it.Description != "Factura 1" || it.Amount.Amount != 1501 || it.Factoring != core.FactoringPending || it.ProjectID != 0 {
		t.Fatalf("unexpected item %+v", it)
	}
}

func TestDeleteAndEmptyPayload(t *testing.T) {
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":null}`))
	})
	if err := c.Projects.Delete(context.Background(), 12); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if method != http.MethodDelete || path != "/api/projects/12" {
		t.Fatalf("unexpected request %s %s", method, path)
	}
}

func TestCatalogCaches(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`[{"id":2,"code":"B-02","name":"Bodega"},{"id":1,"code":"A-01","name":"Administración"}]`))
	})
	m := cache.NewManager(nil)
	defer m.Stop()
	cat := NewCatalog(c, 8, time.Minute, m)

	for i := 0; i < 3; i++ {
		list, err := cat.CostCenters(context.Background())
		if err != nil {
			t.Fatalf("cost centers: %v", err)
		}
		if list[0].Code != "A-01" {
			t.Fatalf("expected sorted list, got %+v", list)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one ERP call, got %d", calls)
	}
	if name := cat.CostCenterName(context.Background(), 2); name != "Bodega" {
		t.Fatalf("unexpected name %q", name)
	}
}

func TestCatalogScopesBySession(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		who := "none"
		if ck, err := r.Cookie("session"); err == nil {
			who = ck.Value
		}
		mu.Lock()
		seen[who]++
		mu.Unlock()
		_, _ = w.Write([]byte(`[{"id":1,"code":"` + who + `","name":"Centro"}]`))
	})
	cat := NewCatalog(c, 8, time.Minute, nil)
	userA := WithSession(context.Background(), &http.Cookie{Name: "session", Value: "user-a"})
	userB := WithSession(context.Background(), &http.Cookie{Name: "session", Value: "user-b"})

	for _, tc := range []struct {
		ctx  context.Context
		code string
	}{
		{userA, "user-a"},
		{userB, "user-b"},
		{userA, "user-a"},
		{context.Background(), "none"},
	} {
		list, err := cat.CostCenters(tc.ctx)
		if err != nil {
			t.Fatalf("cost centers: %v", err)
		}
		if list[0].Code != tc.code {
			t.Errorf("got list of %q, want %q", list[0].Code, tc.code)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if seen["user-a"] != 1 || seen["user-b"] != 1 || seen["none"] != 1 {
		t.Errorf("ERP calls per session = %v, want one each", seen)
	}
}

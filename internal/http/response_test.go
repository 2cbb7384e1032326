package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backoffice/internal/core"
	"backoffice/internal/erp"
	"backoffice/internal/services"
	"backoffice/internal/tenant"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyString("test").
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerRecordSaved("empleados").
		TriggerRecordDeleted("projects", 7).
		TriggerSuccessNotification("Test message").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	expectedParts := []string{
		`"record:saved"`,
		`"record:deleted"`,
		`"resource":"empleados"`,
		`"id":7`,
		`"show-notification"`,
		`"type":"success"`,
	}
	for _, part := range expectedParts {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_TenantAndExportTriggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerTenantSwitched("acme").
		TriggerExportQueued("job-1").
		Write(w)

	var triggers map[string]map[string]string
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if got := triggers["tenant:switched"]["id"]; got != "acme" {
		t.Errorf("tenant:switched id = %q, want acme", got)
	}
	if got := triggers["export:queued"]["id"]; got != "job-1" {
		t.Errorf("export:queued id = %q, want job-1", got)
	}
}

func TestHTMXResponseBuilder_ErrorNotification(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerErrorNotification("Error message").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"type":"error"`) {
		t.Errorf("HX-Trigger missing error type: %s", trigger)
	}
	if !strings.Contains(trigger, `"duration":5000`) {
		t.Errorf("HX-Trigger missing duration: %s", trigger)
	}
}

func TestHTMXResponseBuilder_NoTriggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().BodyString("x").Write(w)

	if got := w.Header().Get("HX-Trigger"); got != "" {
		t.Errorf("HX-Trigger = %q, want empty", got)
	}
}

func TestHTMXResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		JSON(Envelope{Success: true, Data: map[string]int{"id": 3}}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var env struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Data["id"] != 3 {
		t.Errorf("envelope = %+v", env)
	}
}

func TestHTMXResponseBuilder_BodyHTML(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().BodyHTML("<p>ok</p>").Write(w)

	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestErrorBanner(t *testing.T) {
	tests := []struct {
		name      string
		retryURL  string
		wantRetry bool
	}{
		{"with retry", "/ui/financial-table?kind=costs&year=2025", true},
		{"without retry", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorBanner(http.StatusBadGateway, "ERP <caído>", tt.retryURL).Write(w)

			if w.Code != http.StatusBadGateway {
				t.Errorf("Status code = %d, want %d", w.Code, http.StatusBadGateway)
			}
			body := w.Body.String()
			if !strings.Contains(body, "ERP &lt;caído&gt;") {
				t.Errorf("message not escaped: %s", body)
			}
			if got := strings.Contains(body, "Reintentar"); got != tt.wantRetry {
				t.Errorf("retry button present = %v, want %v", got, tt.wantRetry)
			}
			if tt.wantRetry && !strings.Contains(body, `hx-get="/ui/financial-table?kind=costs&amp;year=2025"`) {
				t.Errorf("retry URL missing: %s", body)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantAPI  string
	}{
		{"validation", core.FieldErrors{"name": "Requerido"}, http.StatusUnprocessableEntity, CodeValidation},
		{"wrapped validation", fmt.Errorf("create: %w", core.FieldErrors{"rut": "Inválido"}), http.StatusUnprocessableEntity, CodeValidation},
		{"not confirmed", services.ErrNotConfirmed, http.StatusBadRequest, CodeConfirm},
		{"session expired", &erp.Error{Status: http.StatusUnauthorized}, http.StatusUnauthorized, CodeUnauthorized},
		{"erp not found", &erp.Error{Status: http.StatusNotFound}, http.StatusNotFound, CodeNotFound},
		{"job not found", fmt.Errorf("export job x: %w", core.ErrJobNotFound), http.StatusNotFound, CodeNotFound},
		{"unknown tenant", tenant.ErrUnknownTenant, http.StatusNotFound, CodeNotFound},
		{"unavailable", errUnavailable, http.StatusServiceUnavailable, CodeUnavailable},
		{"logical erp failure", &erp.Error{Status: http.StatusOK, Message: "RUT duplicado", Logical: true}, http.StatusUnprocessableEntity, CodeBackend},
		{"erp outage", &erp.Error{Status: http.StatusBadGateway}, http.StatusBadGateway, CodeBackend},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apiErr := classify(tt.err)
			if status != tt.wantCode {
				t.Errorf("status = %d, want %d", status, tt.wantCode)
			}
			if apiErr.Code != tt.wantAPI {
				t.Errorf("code = %q, want %q", apiErr.Code, tt.wantAPI)
			}
			if apiErr.Message == "" {
				t.Error("message is empty")
			}
		})
	}
}

func TestClassify_LogicalMessageShown(t *testing.T) {
	_, apiErr := classify(&erp.Error{Status: http.StatusOK, Message: "RUT duplicado", Logical: true})
	if apiErr.Message != "RUT duplicado" {
		t.Errorf("message = %q, want ERP text", apiErr.Message)
	}
}

func TestClassify_FieldsCarried(t *testing.T) {
	_, apiErr := classify(core.FieldErrors{"email": "Correo inválido"})
	if apiErr.Fields["email"] != "Correo inválido" {
		t.Errorf("fields = %v", apiErr.Fields)
	}
}

func TestClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	if clientGone(r, context.Canceled) {
		t.Error("clientGone before cancellation = true, want false")
	}
	cancel()
	if !clientGone(r, fmt.Errorf("list: %w", context.Canceled)) {
		t.Error("clientGone after cancellation = false, want true")
	}
	if clientGone(r, errors.New("boom")) {
		t.Error("clientGone on unrelated error = true, want false")
	}
}

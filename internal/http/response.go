// Package http serves the back-office dashboards, record APIs and HTMX
// partials.
//
// This file holds the response side: the JSON envelope, the mapping from
// domain errors to status codes, and a builder for HTMX responses.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"backoffice/internal/core"
	"backoffice/internal/erp"
	applog "backoffice/internal/log"
	"backoffice/internal/middleware/trace"
	"backoffice/internal/services"
	"backoffice/internal/tenant"
)

// Error codes carried in the envelope.
const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeBackend      = "backend_error"
	CodeInternal     = "internal_error"
	CodeBadRequest   = "bad_request"
	CodeConfirm      = "confirmation_required"
	CodeUnavailable  = "unavailable"
	CodeRateLimited  = "rate_limited"
)

// errUnavailable means an optional service, such as exports, is not
// configured on this instance.
var errUnavailable = errors.New("service not configured")

// LoginPath is where an expired session is sent.
const LoginPath = "/login"

type APIError struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Fields  core.FieldErrors `json:"fields,omitempty"`
}

// Envelope wraps every JSON response.
type Envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("Write JSON failed", applog.FieldError, err)
	}
}

func respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data, RequestID: trace.GetRequestID(r.Context())})
}

// fail writes an error envelope. htmx callers also get an error
// notification, since forms posted with hx-swap="none" show no body.
func fail(w http.ResponseWriter, r *http.Request, status int, apiErr APIError) {
	env := Envelope{Success: false, Error: &apiErr, RequestID: trace.GetRequestID(r.Context())}
	if isHTMX(r) {
		NewHTMXResponse().TriggerErrorNotification(apiErr.Message).Status(status).JSON(env).Write(w)
		return
	}
	writeJSON(w, status, env)
}

// classify maps an error from the service layer onto a status and envelope
// error. ERP messages are replaced by user-facing text.
func classify(err error) (int, APIError) {
	var fe core.FieldErrors
	var ee *erp.Error
	switch {
	case errors.As(err, &fe):
		return http.StatusUnprocessableEntity, APIError{Code: CodeValidation, Message: "Revise los campos marcados.", Fields: fe}
	case errors.Is(err, services.ErrNotConfirmed):
		return http.StatusBadRequest, APIError{Code: CodeConfirm, Message: "Confirme la eliminación con confirm=true."}
	case errors.Is(err, erp.ErrUnauthorized):
		return http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: erp.UserMessage(err)}
	case errors.Is(err, erp.ErrNotFound):
		return http.StatusNotFound, APIError{Code: CodeNotFound, Message: erp.UserMessage(err)}
	case errors.Is(err, core.ErrJobNotFound):
		return http.StatusNotFound, APIError{Code: CodeNotFound, Message: "La exportación no existe."}
	case errors.Is(err, tenant.ErrUnknownTenant):
		return http.StatusNotFound, APIError{Code: CodeNotFound, Message: "La organización no existe."}
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable, APIError{Code: CodeUnavailable, Message: "Servicio no disponible."}
	case errors.As(err, &ee) && ee.Logical:
		return http.StatusUnprocessableEntity, APIError{Code: CodeBackend, Message: erp.UserMessage(err)}
	case errors.As(err, &ee):
		return http.StatusBadGateway, APIError{Code: CodeBackend, Message: erp.UserMessage(err)}
	default:
		return http.StatusInternalServerError, APIError{Code: CodeInternal, Message: "Error interno del servidor."}
	}
}

// clientGone reports whether err is the cancellation of r by its client, in
// which case nothing is written.
func clientGone(r *http.Request, err error) bool {
	return errors.Is(err, context.Canceled) && r.Context().Err() != nil
}

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
// It encapsulates the construction of HX-Trigger headers and response bodies.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerRecordSaved tells listening tables to reload resource.
func (b *HTMXResponseBuilder) TriggerRecordSaved(resource string) *HTMXResponseBuilder {
	return b.Trigger("record:saved", map[string]any{"resource": resource})
}

func (b *HTMXResponseBuilder) TriggerRecordDeleted(resource string, id int64) *HTMXResponseBuilder {
	return b.Trigger("record:deleted", map[string]any{"resource": resource, "id": id})
}

// TriggerTenantSwitched makes the layout re-read theme and data.
func (b *HTMXResponseBuilder) TriggerTenantSwitched(id string) *HTMXResponseBuilder {
	return b.Trigger("tenant:switched", map[string]string{"id": id})
}

func (b *HTMXResponseBuilder) TriggerExportQueued(jobID string) *HTMXResponseBuilder {
	return b.Trigger("export:queued", map[string]string{"id": jobID})
}

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// TriggerNotification adds a show-notification event.
func (b *HTMXResponseBuilder) TriggerNotification(notifType NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(notifType),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

func (b *HTMXResponseBuilder) BodyString(content string) *HTMXResponseBuilder {
	b.body = []byte(content)
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// JSON sets an envelope as the body.
func (b *HTMXResponseBuilder) JSON(env Envelope) *HTMXResponseBuilder {
	body, err := json.Marshal(env)
	if err != nil {
		slog.Warn("Encode JSON failed", applog.FieldError, err)
		return b
	}
	b.headers["Content-Type"] = "application/json"
	b.body = append(body, '\n')
	return b
}

// Write sends the built response.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorBanner renders the inline error banner of a partial. When retryURL is
// set the banner carries a button that reloads the same partial.
func ErrorBanner(statusCode int, message, retryURL string) *HTMXResponseBuilder {
	html := `<div class="error-banner" role="alert"><span>` + template.HTMLEscapeString(message) + `</span>`
	if retryURL != "" {
		html += `<button type="button" class="btn btn-retry" hx-get="` + template.HTMLEscapeString(retryURL) +
			`" hx-target="closest [data-partial]" hx-swap="innerHTML">Reintentar</button>`
	}
	html += `</div>`
	return NewHTMXResponse().Status(statusCode).BodyHTML(html)
}

// ok writes a success envelope through b so handlers can attach triggers.
func ok(b *HTMXResponseBuilder, w http.ResponseWriter, r *http.Request, status int, data any) {
	b.Status(status).JSON(Envelope{Success: true, Data: data, RequestID: trace.GetRequestID(r.Context())}).Write(w)
}

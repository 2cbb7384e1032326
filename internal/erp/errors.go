package erp

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the session cookie is missing or expired.
	ErrUnauthorized = errors.New("erp: unauthorized")
	ErrNotFound     = errors.New("erp: not found")
)

// Error is a failure reported by the ERP, either as an HTTP status or as a
// logical failure inside a 200 envelope.
type Error struct {
	Status  int
	Code    string
	Message string
	// Logical is set when the HTTP exchange succeeded but the envelope
	// reported failure.
	Logical bool
}

func (e *Error) Error() string {
	switch {
	case e.Logical && e.Message != "":
		return "erp: " + e.Message
	case e.Message != "":
		return fmt.Sprintf("erp: HTTP %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("erp: HTTP %d", e.Status)
	}
}

// Is maps HTTP statuses onto the package sentinels so callers can use
// errors.Is(err, erp.ErrUnauthorized).
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Code == "session_expired"
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// UserMessage is the text shown in the error banner.
func UserMessage(err error) string {
	var e *Error
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Su sesión expiró. Inicie sesión nuevamente."
	case errors.Is(err, ErrNotFound):
		return "El registro no existe o fue eliminado."
	case errors.As(err, &e) && e.Logical && e.Message != "":
		return e.Message
	default:
		return "No se pudo comunicar con el ERP. Intente nuevamente."
	}
}

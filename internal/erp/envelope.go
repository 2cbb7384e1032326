package erp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// The ERP answers in one of two shapes:
//
//	{"jsonrpc": "2.0", "result": ...} / {"jsonrpc": "2.0", "error": {...}}
//	{"success": bool, "data": ..., "message": "..."} (or "status" instead of "success")
//
// JSON-RPC results may wrap the second shape. Anything else is the payload.

type rpcError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

// unwrap returns the payload of body, or an *Error for logical failures.
func unwrap(body []byte) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return body, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("erp: decode response: %w", err)
	}

	if _, ok := fields["jsonrpc"]; ok {
		if raw, ok := fields["error"]; ok && !isNull(raw) {
			var re rpcError
			if err := json.Unmarshal(raw, &re); err != nil {
				return nil, fmt.Errorf("erp: decode rpc error: %w", err)
			}
			return nil, rpcFailure(re)
		}
		result := fields["result"]
		if isNull(result) {
			return nil, nil
		}
		return unwrap(result)
	}

	if raw, ok := fields["success"]; ok {
		var success bool
		if err := json.Unmarshal(raw, &success); err == nil {
			if !success {
				return nil, &Error{Logical: true, Message: message(fields)}
			}
			return fields["data"], nil
		}
	}

	if raw, ok := fields["status"]; ok {
		var status string
		if err := json.Unmarshal(raw, &status); err == nil {
			switch strings.ToLower(status) {
			case "success", "ok":
				return fields["data"], nil
			case "error", "fail", "failed":
				return nil, &Error{Logical: true, Message: message(fields)}
			}
		}
	}

	return body, nil
}

func rpcFailure(re rpcError) *Error {
	msg := re.Data.Message
	if msg == "" {
		msg = re.Message
	}
	e := &Error{Logical: true, Message: msg}
	// Odoo reports an expired session as a JSON-RPC error with HTTP 200.
	if re.Data.Name == "odoo.http.SessionExpiredException" || fmt.Sprint(re.Code) == "100" {
		e.Code = "session_expired"
	}
	return e
}

func message(fields map[string]json.RawMessage) string {
	for _, k := range []string{"message", "error"} {
		var s string
		if raw, ok := fields[k]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return "operación rechazada por el ERP"
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// decodeList accepts a bare array or an object carrying the array under one
// of the usual keys.
func decodeList(raw json.RawMessage, out any) error {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) || bytes.Equal(raw, []byte("false")) {
		raw = []byte("[]")
	}
	if raw[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("erp: decode list: %w", err)
		}
		raw = []byte("[]")
		for _, k := range []string{"items", "records", "data", "results"} {
			if v, ok := fields[k]; ok && !isNull(v) {
				raw = v
				break
			}
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("erp: decode list: %w", err)
	}
	return nil
}

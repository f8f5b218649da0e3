package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Error is an API failure with the status it is reported under.
type Error struct {
	Status  int
	Code    string
	Message string
	Meta    map[string]string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// WithMeta returns a copy of e with key set in its meta.
func (e *Error) WithMeta(key, value string) *Error {
	out := *e
	out.Meta = make(map[string]string, len(e.Meta)+1)
	for k, v := range e.Meta {
		out.Meta[k] = v
	}
	out.Meta[key] = value
	return &out
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteAPIError writes e, adding request_id to its meta when known.
func WriteAPIError(w http.ResponseWriter, requestID string, e *Error) error {
	if requestID != "" {
		e = e.WithMeta("request_id", requestID)
	}
	return WriteError(w, e.Status, e.Code, e.Message, e.Meta)
}

// Package httpx provides the JSON envelope shared by every API handler.
package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// Meta carries metadata attached to every successful response.
type Meta struct {
	Timestamp  time.Time `json:"timestamp"`
	TotalCount *int      `json:"total_count,omitempty"`
}

// Envelope wraps a successful payload.
type Envelope struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// FieldError pinpoints a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorBody is the error counterpart of Envelope.
type ErrorBody struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// JSON sends data wrapped in the success envelope with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Data: data, Meta: Meta{Timestamp: time.Now().UTC()}})
}

// JSONList sends a collection wrapped in the success envelope with
// total_count metadata.
func JSONList(w http.ResponseWriter, status int, data any, total int) {
	write(w, status, Envelope{Data: data, Meta: Meta{Timestamp: time.Now().UTC(), TotalCount: &total}})
}

// Error sends an error envelope with a machine-readable code. Details is
// always present in the body, empty when no field errors apply.
func Error(w http.ResponseWriter, status int, code, message string, details ...FieldError) {
	if details == nil {
		details = []FieldError{}
	}
	write(w, status, errorEnvelope{Error: ErrorBody{Code: code, Message: message, Details: details}})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON decodes the JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

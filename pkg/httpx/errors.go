package httpx

import (
	"net/http"
	"time"
)

// FieldError describes a single rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is the uniform error body returned by every endpoint.
type APIError struct {
	Timestamp   time.Time    `json:"timestamp"`
	Status      int          `json:"status"`
	Error       string       `json:"error"`
	Message     string       `json:"message"`
	Path        string       `json:"path"`
	FieldErrors []FieldError `json:"fieldErrors,omitempty"`
}

// Problem is a reusable error template. Handlers keep a small set of these
// so that every failure of one kind renders identically.
type Problem struct {
	Status  int
	Message string
}

// Write renders p for request r.
func (p Problem) Write(w http.ResponseWriter, r *http.Request) {
	p.WriteFields(w, r, nil)
}

// WriteFields renders p with per-field validation failures attached.
func (p Problem) WriteFields(w http.ResponseWriter, r *http.Request, fields []FieldError) {
	WriteJSON(w, p.Status, APIError{
		Timestamp:   time.Now().UTC(),
		Status:      p.Status,
		Error:       http.StatusText(p.Status),
		Message:     p.Message,
		Path:        r.URL.Path,
		FieldErrors: fields,
	})
}

// WithMessage returns a copy of p with a different message.
func (p Problem) WithMessage(msg string) Problem {
	p.Message = msg
	return p
}

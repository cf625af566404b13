package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FieldError is a single rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is the error body the service returns for every failure.
type APIError struct {
	Timestamp   time.Time    `json:"timestamp"`
	Status      int          `json:"status"`
	ErrorText   string       `json:"error"`
	Message     string       `json:"message"`
	Path        string       `json:"path"`
	FieldErrors []FieldError `json:"fieldErrors,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.FieldErrors) == 0 {
		return fmt.Sprintf("authsdk: %d %s: %s", e.Status, e.ErrorText, e.Message)
	}
	fields := make([]string, 0, len(e.FieldErrors))
	for _, f := range e.FieldErrors {
		fields = append(fields, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("authsdk: %d %s: %s (%s)", e.Status, e.ErrorText, e.Message, strings.Join(fields, "; "))
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an
// *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// parseErrorResponse turns a non-success response into an *APIError. Bodies
// that are not JSON still produce an error carrying the status.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Status == 0 {
		apiErr = &APIError{
			Status:    resp.StatusCode,
			ErrorText: http.StatusText(resp.StatusCode),
			Message:   strings.TrimSpace(string(body)),
		}
	}
	return apiErr
}

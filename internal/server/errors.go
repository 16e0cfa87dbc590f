package server

import (
	"net/http"

	"github.com/go-chi/render"
)

// Error codes
const (
	CodeNoData       = "NO_DATA"
	CodeInvalidDate  = "INVALID_DATE"
	CodeInvalidQuery = "INVALID_QUERY"
	CodeInternal     = "INTERNAL_ERROR"
)

// APIError is the JSON body of every failed API request.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func errNoData(date string) *APIError {
	return &APIError{
		StatusCode: http.StatusNotFound,
		ErrorCode:  CodeNoData,
		Message:    "no data for this date",
		Details:    map[string]string{"date": date},
	}
}

func errInvalidRequest(code, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: http.StatusBadRequest,
		ErrorCode:  code,
		Message:    message,
		Details:    details,
	}
}

func errInternal(err error) *APIError {
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  CodeInternal,
		Message:    err.Error(),
	}
}

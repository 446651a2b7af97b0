// Package response writes the JSON envelopes used by every API handler.
package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ramonehamilton/swu-binder/internal/cards/setcache"
	"github.com/ramonehamilton/swu-binder/internal/cards/source"
	"github.com/ramonehamilton/swu-binder/internal/importer"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
	"github.com/ramonehamilton/swu-binder/internal/session"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// SuccessResponse represents a successful API response with data.
type SuccessResponse struct {
	Data any `json:"data"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// Success writes a successful JSON response.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// Text writes a plain-text body produced by fn. Used for TCG lists.
func Text(w http.ResponseWriter, fn func(io.Writer) error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = fn(w)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error response with the given status code.
func Error(w http.ResponseWriter, status int, err error) {
	JSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    status,
	})
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, err error) {
	Error(w, http.StatusBadRequest, err)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, err error) {
	Error(w, http.StatusNotFound, err)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, err error) {
	Error(w, http.StatusInternalServerError, err)
}

// ServiceUnavailable writes a 503 Service Unavailable response.
func ServiceUnavailable(w http.ResponseWriter, err error) {
	Error(w, http.StatusServiceUnavailable, err)
}

// FromError writes err with the status code its kind maps to.
func FromError(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, setcache.ErrUnknownSet),
		errors.Is(err, ledger.ErrUnknownCard),
		errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrNotBaseCard),
		errors.Is(err, ledger.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrUnrecognizedFormat):
		return http.StatusUnprocessableEntity
	case isTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case source.IsNotFound(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

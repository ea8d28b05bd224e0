package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// WHY HELPERS?
// Without helpers, every handler repeats the same boilerplate:
//   w.Header().Set("Content-Type", "application/json")
//   w.WriteHeader(statusCode)
//   json.NewEncoder(w).Encode(data)
//
// With helpers, handlers are cleaner and more consistent:
//   WriteJSON(w, http.StatusOK, data)
//   WriteError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//   {"status": "error", "error": "conflict", "message": "a user with this email already exists", "field": "email"}
//
// It never contains a stack trace or a raw driver message: those go to
// the logs, keyed by the request id the client sees in X-Request-ID.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/base-backend/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Status  string `json:"status"`          // Always "error"
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending input, when there is one
}

// WriteJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
// Any header changes after that are silently ignored.
//
// That's why we do:
//  1. w.Header().Set(...)     ← set headers
//  2. w.WriteHeader(status)   ← send status + headers
//  3. json.Encode(data)       ← send body
//
// Exported because the middleware package answers rejected requests
// (bad Host, recovered panics) in the same format.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// The headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// WriteErrorStatus sends the standard error body with an explicit status.
func WriteErrorStatus(w http.ResponseWriter, status int, errorType, message string) {
	WriteJSON(w, status, ErrorResponse{Status: "error", Error: errorType, Message: message})
}

// WriteError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	apperror.ErrValidation   → 400 validation_error
//	apperror.ErrUnauthorized → 401 unauthorized
//	apperror.ErrNotFound     → 404 not_found
//	apperror.ErrConflict     → 409 conflict
//	apperror.ErrUnavailable  → 503 unavailable
//	anything else            → 500 internal_error (generic message)
//
// errors.Is() walks the whole chain, so a service error like
// fmt.Errorf("creating user: %w", apperror.DuplicateIdentity("email"))
// still maps to 409.
func WriteError(w http.ResponseWriter, err error) {
	status, errorType := classify(err)

	var appErr *apperror.AppError
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		// NEVER expose internal error details to the client.
		// The raw message might contain SQL, file paths or hostnames.
		WriteErrorStatus(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		return
	}

	WriteJSON(w, status, ErrorResponse{
		Status:  "error",
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// NotFound answers unknown routes with the standard JSON body.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorStatus(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
}

// MethodNotAllowed answers known routes hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteErrorStatus(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed on "+r.URL.Path)
}

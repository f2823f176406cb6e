// internal/app/system/httpjson/httpjson.go

// Package httpjson holds the JSON response helpers shared by the API
// feature handlers.
//
// Error responses follow one shape so clients can branch on a stable code
// rather than parsing messages:
//
//	{ "error": "conflict", "message": "you are already a member of this group" }
//
// Codes map the engine's failure taxonomy onto HTTP statuses:
//
//	not_found    404  target does not exist or is not visible to the caller
//	unauthorized 401  no valid credential presented
//	forbidden    403  caller lacks the required role or privilege
//	conflict     409  duplicate request, double resolution, bad transition
//	invalid      400  malformed input, rejected before reaching the core
//	unavailable  503  backing storage failed transiently; caller may retry
//
// forbidden and conflict are deliberately distinct: a client must be able to
// say "already resolved" instead of "you are not allowed".
package httpjson

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Write encodes v as the JSON response body with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with a 200 status.
func OK(w http.ResponseWriter, v any) {
	Write(w, http.StatusOK, v)
}

// Created writes v with a 201 status.
func Created(w http.ResponseWriter, v any) {
	Write(w, http.StatusCreated, v)
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, errorBody{Error: code, Message: message})
}

// NotFound writes a 404. Also used when the target exists but is not visible
// to the caller, so the response does not leak existence.
func NotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, "not_found", message)
}

// Unauthorized writes a 401 for absent or invalid credentials.
func Unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
}

// Forbidden writes a 403 for a caller that lacks the required role.
func Forbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, "forbidden", message)
}

// Conflict writes a 409 for duplicate requests, double resolutions, and
// illegal transitions.
func Conflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, "conflict", message)
}

// BadRequest writes a 400 for malformed input.
func BadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "invalid", message)
}

// Unavailable writes a 503 for transient backend failures. The caller may
// retry with backoff; the engine never retries internally because a retried
// mutation could double-apply.
func Unavailable(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	if log != nil {
		log.Warn("backend unavailable", zap.String("op", op), zap.Error(err))
	}
	writeError(w, http.StatusServiceUnavailable, "unavailable", "temporarily unavailable, try again")
}

// Decode parses the request body into dst, enforcing a small size cap and
// rejecting unknown fields. Returns false (after writing a 400) on failure.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		BadRequest(w, "malformed request body")
		return false
	}
	return true
}

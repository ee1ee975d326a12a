// Package httputil centralizes JSON encoding and domain-error translation for
// the HTTP layer so every handler emits the same envelopes.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "carteret/pkg/domain-errors"
)

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the error envelope shared by all endpoints. The description is
// intentionally generic for authorization failures (no leakage of whether the
// caller was unauthenticated or merely under-privileged).
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError translates a coded domain error into an HTTP response.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	if msg := publicMessage(code); msg != "" {
		body.Description = msg
	}
	WriteJSON(w, ToHTTPStatus(code), body)
}

// ToHTTPStatus maps domain error codes to HTTP statuses.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodePermissionDenied:
		return http.StatusForbidden
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeStaleSession:
		return http.StatusUnauthorized
	case dErrors.CodeAuthUnavailable, dErrors.CodeUpstream:
		return http.StatusBadGateway
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the description safe to show an unprivileged caller.
func publicMessage(code dErrors.Code) string {
	switch code {
	case dErrors.CodePermissionDenied:
		return "not allowed"
	case dErrors.CodeStaleSession:
		return "session is no longer valid, sign in again"
	case dErrors.CodeAuthUnavailable:
		return "authentication state unknown, retry"
	default:
		return ""
	}
}

// Decode unmarshals a JSON request body into T, translating failures into a
// bad-request envelope. The second return reports whether decoding succeeded;
// on false the response has already been written.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "request body decode failed", "error", err)
		WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body"))
		var zero T
		return zero, false
	}
	return req, true
}

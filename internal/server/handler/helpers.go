package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/brandlab/exchange/internal/domain"
)

// sessionHeader carries the caller's established session id on every
// authenticated request.
const sessionHeader = "X-Session-ID"

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a domain error to its HTTP status and writes it.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor maps domain sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrMissingField),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidListing),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMissingAddress):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// parseLimit extracts a feed limit from the query string, clamped to the
// feed cap. Defaults to the cap.
func parseLimit(r *http.Request) int {
	limit := domain.FeedCap
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > domain.FeedCap {
		limit = domain.FeedCap
	}
	return limit
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}

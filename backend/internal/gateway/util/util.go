package util

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"marksboard/backend/internal/shared"
)

// SessionCookie is the cookie that carries the session token for browser clients.
const SessionCookie = "session"

// JSONError is the body of every error response
type JSONError struct {
	Error string `json:"error"`
}

// WriteJSON writes payload as the JSON response body
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("error writing JSON response")
	}
}

// WriteJSONError writes a standardized {"error": message} response
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		log.Error().Int("status", status).Str("error_message", message).Msg("http error")
	} else {
		log.Debug().Int("status", status).Str("error_message", message).Msg("http error")
	}
	WriteJSON(w, status, JSONError{Error: message})
}

// HandleServiceError maps the shared error taxonomy to HTTP responses.
// Validation and conflict messages are passed through; store failures are not.
func HandleServiceError(w http.ResponseWriter, err error) {
	var (
		verr *shared.ValidationError
		cerr *shared.ConflictError
	)

	switch {
	case errors.As(err, &verr):
		WriteJSONError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, shared.ErrValidation):
		WriteJSONError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, shared.ErrUnauthenticated):
		WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, shared.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, "Forbidden: You can only access your own marks")
	case errors.As(err, &cerr):
		WriteJSONError(w, http.StatusConflict, cerr.Message)
	case errors.Is(err, shared.ErrConflict):
		WriteJSONError(w, http.StatusConflict, "Already submitted, please refresh and retry")
	case errors.Is(err, shared.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, "Not found")
	default:
		log.Error().Err(err).Msg("request failed")
		WriteJSONError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// ExtractToken returns the session token from the Authorization header
// (Bearer <token>) or, failing that, from the session cookie.
func ExtractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return "", errors.New("invalid authorization header format")
		}
		return parts[1], nil
	}

	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	return "", errors.New("authorization token missing")
}

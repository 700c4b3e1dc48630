package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"marksboard/backend/internal/auth"
	"marksboard/backend/internal/gateway/util"
)

// Authenticator is the part of auth.AuthService the handlers need.
type Authenticator interface {
	Login(ctx context.Context, ticket, service string) (*auth.LoginResult, error)
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
	TTL() time.Duration
}

// AuthHandler serves the CAS login and session endpoints.
type AuthHandler struct {
	Auth         Authenticator
	CookieSecure bool
}

// CASLoginRequest mirrors the expected JSON input for /auth/cas
type CASLoginRequest struct {
	Ticket  string `json:"ticket"`
	Service string `json:"service"`
}

// Login handles POST /api/auth/cas
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var reqBody CASLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		if errors.Is(err, io.EOF) {
			util.WriteJSONError(w, http.StatusBadRequest, "Request body is empty")
			return
		}
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if reqBody.Ticket == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "No CAS ticket provided")
		return
	}

	// 1. Validate ticket and issue token
	res, err := h.Auth.Login(r.Context(), reqBody.Ticket, reqBody.Service)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	// 2. Browser clients get the token as a cookie as well
	h.setSessionCookie(w, res.Token, int(h.Auth.TTL().Seconds()))

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"token":     res.Token,
		"expiresAt": res.ExpiresAt.UTC(),
		"user":      res.User,
	})
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		util.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{
			"rollNumber": claims.RollNumber,
			"name":       claims.Name,
			"email":      claims.Email,
		},
		"expiresAt": claims.ExpiresAt.Time.UTC(),
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// Logout is idempotent: a missing or unknown token still clears the cookie
	if token, err := util.ExtractToken(r); err == nil {
		if err := h.Auth.Logout(r.Context(), token); err != nil {
			util.HandleServiceError(w, err)
			return
		}
	}

	h.setSessionCookie(w, "", -1)

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     util.SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"marksboard/backend/internal/auth"
	"marksboard/backend/internal/gateway/util"
	"marksboard/backend/internal/marks"
	"marksboard/backend/internal/shared"
)

// MarksSubmitter is the part of marks.MarksService the handler needs.
type MarksSubmitter interface {
	Submit(ctx context.Context, sessionRoll string, req marks.SubmitRequest) (*shared.MarkRecord, error)
	GetMarks(ctx context.Context, sessionRoll, rollNumber, subject string) (float64, error)
	CheckOwner(ctx context.Context, op, sessionRoll, requestRoll string) error
}

// MarksHandler serves the per-student marks endpoints.
type MarksHandler struct {
	Marks MarksSubmitter
}

// sessionRoll is empty when the request carries no session.
func sessionRoll(r *http.Request) string {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	return claims.RollNumber
}

// GetMarks handles GET /api/marks?rollNumber=&subject=
func (h *MarksHandler) GetMarks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	m, err := h.Marks.GetMarks(r.Context(), sessionRoll(r), q.Get("rollNumber"), q.Get("subject"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"marks": m,
	})
}

// SubmitMarks handles POST /api/marks
func (h *MarksHandler) SubmitMarks(w http.ResponseWriter, r *http.Request) {
	// 1. Session check runs before the body is even read
	roll := sessionRoll(r)
	if roll == "" {
		util.HandleServiceError(w, shared.ErrUnauthenticated)
		return
	}

	// 2. Decode leniently; field type errors are held back until ownership is known
	req, decodeErr := marks.DecodeSubmitRequest(r.Body)
	if errors.Is(decodeErr, marks.ErrBodyUnreadable) {
		util.HandleServiceError(w, decodeErr)
		return
	}

	// 3. Ownership wins over any payload problem
	if err := h.Marks.CheckOwner(r.Context(), "submit", roll, req.RollNumber); err != nil {
		util.HandleServiceError(w, err)
		return
	}
	if decodeErr != nil {
		util.HandleServiceError(w, decodeErr)
		return
	}

	// 4. Gate and store
	rec, err := h.Marks.Submit(r.Context(), roll, req)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
	})
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"marksboard/backend/internal/catalog"
	"marksboard/backend/internal/gateway/util"
)

// Pinger reports whether the marks store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the catalog and health endpoints.
type SystemHandler struct {
	Catalog *catalog.Catalog
	Store   Pinger
	Version string
}

// GetCatalog handles GET /api/catalog
func (h *SystemHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"subjects": h.Catalog.Subjects,
		"tas":      h.Catalog.TAs,
		"branches": h.Catalog.BranchNames(),
	})
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		util.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unavailable",
			"version": h.Version,
		})
		return
	}

	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.Version,
	})
}

package handlers

import (
	"context"
	"net/http"

	"marksboard/backend/internal/analysis"
	"marksboard/backend/internal/catalog"
	"marksboard/backend/internal/gateway/util"
	"marksboard/backend/internal/shared"
)

// Analyzer produces a fresh analysis report.
type Analyzer interface {
	Analyze(ctx context.Context) (*analysis.Report, error)
}

// AnalysisHandler serves the cohort-wide views.
type AnalysisHandler struct {
	Engine  Analyzer
	Catalog *catalog.Catalog
}

// GetAnalysis handles GET /api/analysis
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	report, err := h.Engine.Analyze(r.Context())
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, report)
}

// GetSummary handles GET /api/analysis/summary
func (h *AnalysisHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	roll := sessionRoll(r)
	if roll == "" {
		util.HandleServiceError(w, shared.ErrUnauthenticated)
		return
	}

	report, err := h.Engine.Analyze(r.Context())
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, analysis.Summarize(report, h.Catalog, roll))
}

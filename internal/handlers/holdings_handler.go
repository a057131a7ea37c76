package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// HoldingsHandler serves on-demand holdings views that bypass the stored
// analysis result.
type HoldingsHandler struct {
	holdingsService    interfaces.HoldingsService
	performanceService interfaces.PerformanceService
	logger             arbor.ILogger
}

// NewHoldingsHandler creates a new holdings handler.
func NewHoldingsHandler(
	holdingsService interfaces.HoldingsService,
	performanceService interfaces.PerformanceService,
	logger arbor.ILogger,
) *HoldingsHandler {
	return &HoldingsHandler{
		holdingsService:    holdingsService,
		performanceService: performanceService,
		logger:             logger,
	}
}

// fetchSnapshot resolves the holdings for a request, honoring ?use_mock.
// A bare ?use_mock counts as true; unparseable values fall through to the
// live fetch. Returns nil after writing the error response when the fetch
// fails.
func (h *HoldingsHandler) fetchSnapshot(w http.ResponseWriter, r *http.Request) *models.HoldingsSnapshot {
	if raw, present := r.URL.Query()["use_mock"]; present {
		useMock := len(raw) == 0 || raw[0] == ""
		if !useMock {
			useMock, _ = strconv.ParseBool(raw[0])
		}
		if useMock {
			return h.holdingsService.MockSnapshot()
		}
	}

	snapshot, err := h.holdingsService.Fetch(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Holdings fetch failed")
		WriteError(w, http.StatusBadGateway, "Failed to fetch holdings: "+err.Error())
		return nil
	}
	return snapshot
}

// GetHoldingsHandler returns the normalized holdings list.
func (h *HoldingsHandler) GetHoldingsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot := h.fetchSnapshot(w, r)
	if snapshot == nil {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"holdings":    snapshot.Holdings,
		"count":       snapshot.Count(),
		"source":      snapshot.Source,
		"total_value": snapshot.TotalValue,
		"fetched_at":  snapshot.FetchedAt,
	})
}

// GetPerformanceHandler evaluates live performance for the current holdings.
func (h *HoldingsHandler) GetPerformanceHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot := h.fetchSnapshot(w, r)
	if snapshot == nil {
		return
	}

	report, err := h.performanceService.Evaluate(r.Context(), snapshot.Holdings)
	if err != nil {
		h.logger.Error().Err(err).Msg("Performance evaluation failed")
		WriteError(w, http.StatusInternalServerError, "Failed to evaluate performance: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"source":      snapshot.Source,
		"performance": report.Records,
		"total_value": report.TotalValue,
		"threshold":   report.Threshold,
		"analyzed_at": report.AnalyzedAt,
	})
}

// GetFluctuationsHandler evaluates live performance and returns only the
// high-fluctuation alerts.
func (h *HoldingsHandler) GetFluctuationsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot := h.fetchSnapshot(w, r)
	if snapshot == nil {
		return
	}

	report, err := h.performanceService.Evaluate(r.Context(), snapshot.Holdings)
	if err != nil {
		h.logger.Error().Err(err).Msg("Performance evaluation failed")
		WriteError(w, http.StatusInternalServerError, "Failed to evaluate performance: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"source":            snapshot.Source,
		"high_fluctuations": report.Alerts,
		"count":             len(report.Alerts),
		"threshold":         report.Threshold,
		"analyzed_at":       report.AnalyzedAt,
	})
}

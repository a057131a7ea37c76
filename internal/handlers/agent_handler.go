package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/analysis"
)

// AgentHandler serves the analysis pipeline trigger and read-only views of
// the latest stored result.
type AgentHandler struct {
	analysisService interfaces.AnalysisService
	logger          arbor.ILogger
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(analysisService interfaces.AnalysisService, logger arbor.ILogger) *AgentHandler {
	return &AgentHandler{
		analysisService: analysisService,
		logger:          logger,
	}
}

// AnalyzeHandler runs the full pipeline. Responds 409 when a run is already
// in progress. An empty body runs with every stage enabled.
func (h *AgentHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	req := models.DefaultAnalyzeRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.analysisService.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, analysis.ErrAnalysisInProgress) {
			WriteError(w, http.StatusConflict, "Analysis already in progress")
			return
		}
		h.logger.Error().Err(err).Msg("Analysis run failed")
		WriteError(w, http.StatusInternalServerError, "Analysis failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// latest writes a 404 and returns nil when no analysis has completed yet.
func (h *AgentHandler) latest(w http.ResponseWriter) *models.AnalysisResult {
	result := h.analysisService.Latest()
	if result == nil {
		WriteError(w, http.StatusNotFound, "No analysis available yet, run POST /api/agent/analyze first")
		return nil
	}
	return result
}

// GetSummaryHandler returns the narrative summary of the latest run.
func (h *AgentHandler) GetSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	result := h.latest(w)
	if result == nil {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summary":     result.Summary,
		"analysis_id": result.ID,
		"status":      result.Status,
		"analyzed_at": result.CompletedAt,
	})
}

// GetFluctuationsHandler returns the alerts from the latest run.
func (h *AgentHandler) GetFluctuationsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	result := h.latest(w)
	if result == nil {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"high_fluctuations": result.Alerts,
		"count":             len(result.Alerts),
		"analysis_id":       result.ID,
		"analyzed_at":       result.CompletedAt,
	})
}

// GetEarningsHandler returns the upcoming earnings from the latest run.
func (h *AgentHandler) GetEarningsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	result := h.latest(w)
	if result == nil {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"upcoming_earnings": result.Earnings,
		"count":             len(result.Earnings),
		"analysis_id":       result.ID,
		"analyzed_at":       result.CompletedAt,
	})
}

// GetNewsHandler returns the news items from the latest run.
func (h *AgentHandler) GetNewsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	result := h.latest(w)
	if result == nil {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"news":        result.News,
		"count":       len(result.News),
		"analysis_id": result.ID,
		"analyzed_at": result.CompletedAt,
	})
}

// GetStatusHandler reports pipeline availability without requiring a result.
func (h *AgentHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status := map[string]interface{}{
		"in_progress":  h.analysisService.InProgress(),
		"has_analysis": false,
	}

	if result := h.analysisService.Latest(); result != nil {
		status["has_analysis"] = true
		status["analysis_id"] = result.ID
		status["analysis_status"] = result.Status
		status["last_analyzed"] = result.CompletedAt
		if result.Holdings != nil {
			status["holdings_count"] = result.Holdings.Count()
		}
	}

	WriteJSON(w, http.StatusOK, status)
}

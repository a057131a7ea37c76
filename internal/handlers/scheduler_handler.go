package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
)

// SchedulerHandler exposes the schedule controller control plane.
type SchedulerHandler struct {
	schedulerService interfaces.SchedulerService
	logger           arbor.ILogger
}

// NewSchedulerHandler creates a new scheduler handler.
func NewSchedulerHandler(schedulerService interfaces.SchedulerService, logger arbor.ILogger) *SchedulerHandler {
	return &SchedulerHandler{
		schedulerService: schedulerService,
		logger:           logger,
	}
}

// GetStatusHandler returns the current scheduler state.
func (h *SchedulerHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, h.schedulerService.Status())
}

// StartHandler starts scheduled execution.
func (h *SchedulerHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.schedulerService.Start(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to start scheduler")
		WriteError(w, http.StatusInternalServerError, "Failed to start scheduler: "+err.Error())
		return
	}

	WriteSuccess(w, "Scheduler started")
}

// StopHandler stops scheduled execution.
func (h *SchedulerHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.schedulerService.Stop(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to stop scheduler")
		WriteError(w, http.StatusInternalServerError, "Failed to stop scheduler: "+err.Error())
		return
	}

	WriteSuccess(w, "Scheduler stopped")
}

// TriggerHandler runs the analysis immediately, outside the schedule.
func (h *SchedulerHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.schedulerService.TriggerNow(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to trigger analysis")
		WriteError(w, http.StatusInternalServerError, "Failed to trigger analysis: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"message": "Analysis triggered, results will be available shortly",
	})
}

// UpdateCronHandler replaces the cron expression. Invalid expressions are
// rejected with 400 and the prior schedule stays active.
func (h *SchedulerHandler) UpdateCronHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}

	var req struct {
		Expression string `json:"expression"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Expression == "" {
		WriteError(w, http.StatusBadRequest, "Cron expression is required")
		return
	}

	if err := h.schedulerService.UpdateCron(req.Expression); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":          "success",
		"message":         "Schedule updated",
		"cron_expression": req.Expression,
	})
}

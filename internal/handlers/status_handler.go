package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
)

// StatusHandler serves the service info, health, and version endpoints.
type StatusHandler struct {
	config           *common.Config
	schedulerService interfaces.SchedulerService
	llmService       interfaces.LLMService
	logger           arbor.ILogger
	startedAt        time.Time
}

// NewStatusHandler creates a new status handler. llmService may be nil when
// no provider is configured.
func NewStatusHandler(
	config *common.Config,
	schedulerService interfaces.SchedulerService,
	llmService interfaces.LLMService,
	logger arbor.ILogger,
) *StatusHandler {
	return &StatusHandler{
		config:           config,
		schedulerService: schedulerService,
		llmService:       llmService,
		logger:           logger,
		startedAt:        time.Now().UTC(),
	}
}

// RootHandler returns the service info and endpoint map.
func (h *StatusHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service": "folio",
		"version": common.GetVersion(),
		"endpoints": map[string]string{
			"health":           "GET /api/health",
			"version":          "GET /api/version",
			"stock":            "GET /api/stock/{ticker}",
			"history":          "GET /api/history/{ticker}?period=1mo",
			"compare":          "POST /api/compare",
			"holdings":         "GET /api/holdings",
			"performance":      "GET /api/holdings/performance",
			"fluctuations":     "GET /api/holdings/fluctuations",
			"analyze":          "POST /api/agent/analyze",
			"summary":          "GET /api/agent/summary",
			"agent_status":     "GET /api/agent/status",
			"scheduler_status": "GET /api/scheduler/status",
		},
	})
}

// HealthHandler reports process health plus scheduler and LLM state.
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	llm := map[string]interface{}{
		"provider":   string(h.config.LLM.Provider),
		"configured": h.llmService != nil,
	}
	if h.llmService != nil {
		llm["model"] = h.llmService.ModelName()
		llm["mode"] = string(h.llmService.GetMode())

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.llmService.HealthCheck(ctx); err != nil {
			llm["healthy"] = false
			llm["error"] = err.Error()
		} else {
			llm["healthy"] = true
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
		"version": common.GetVersion(),
		"scheduler": map[string]interface{}{
			"enabled": h.config.Scheduler.Enabled,
			"running": h.schedulerService.IsRunning(),
		},
		"llm": llm,
	})
}

// VersionHandler returns build version details.
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

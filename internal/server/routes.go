package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Service info and health
	mux.HandleFunc("/", s.app.StatusHandler.RootHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)

	// Ad-hoc market data lookups
	mux.HandleFunc("/api/stock/", s.app.StocksHandler.GetStockHandler)     // GET /{ticker}
	mux.HandleFunc("/api/history/", s.app.StocksHandler.GetHistoryHandler) // GET /{ticker}?period=
	mux.HandleFunc("/api/compare", s.app.StocksHandler.CompareHandler)     // POST

	// On-demand holdings views (bypass the stored analysis)
	mux.HandleFunc("/api/holdings", s.app.HoldingsHandler.GetHoldingsHandler)                  // GET (?use_mock)
	mux.HandleFunc("/api/holdings/performance", s.app.HoldingsHandler.GetPerformanceHandler)   // GET (?use_mock)
	mux.HandleFunc("/api/holdings/fluctuations", s.app.HoldingsHandler.GetFluctuationsHandler) // GET (?use_mock)

	// Analysis pipeline
	mux.HandleFunc("/api/agent/analyze", s.app.AgentHandler.AnalyzeHandler)              // POST - 409 when in progress
	mux.HandleFunc("/api/agent/summary", s.app.AgentHandler.GetSummaryHandler)           // GET
	mux.HandleFunc("/api/agent/fluctuations", s.app.AgentHandler.GetFluctuationsHandler) // GET
	mux.HandleFunc("/api/agent/earnings", s.app.AgentHandler.GetEarningsHandler)         // GET
	mux.HandleFunc("/api/agent/news", s.app.AgentHandler.GetNewsHandler)                 // GET
	mux.HandleFunc("/api/agent/status", s.app.AgentHandler.GetStatusHandler)             // GET

	// Scheduler control plane
	mux.HandleFunc("/api/scheduler/status", s.app.SchedulerHandler.GetStatusHandler) // GET
	mux.HandleFunc("/api/scheduler/start", s.app.SchedulerHandler.StartHandler)      // POST
	mux.HandleFunc("/api/scheduler/stop", s.app.SchedulerHandler.StopHandler)        // POST
	mux.HandleFunc("/api/scheduler/trigger", s.app.SchedulerHandler.TriggerHandler)  // POST
	mux.HandleFunc("/api/scheduler/cron", s.app.SchedulerHandler.UpdateCronHandler)  // PUT - 400 on invalid expression

	return mux
}

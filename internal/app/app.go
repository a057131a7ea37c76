package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/handlers"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/services/agent"
	"github.com/ternarybob/folio/internal/services/analysis"
	"github.com/ternarybob/folio/internal/services/earnings"
	"github.com/ternarybob/folio/internal/services/holdings"
	"github.com/ternarybob/folio/internal/services/llm"
	"github.com/ternarybob/folio/internal/services/news"
	"github.com/ternarybob/folio/internal/services/performance"
	"github.com/ternarybob/folio/internal/services/scheduler"
	"github.com/ternarybob/folio/internal/yahoo"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Market data client shared by every collector
	MarketClient *yahoo.Client

	// Pipeline services
	HoldingsService    interfaces.HoldingsService
	PerformanceService interfaces.PerformanceService
	EarningsService    interfaces.EarningsService
	NewsService        interfaces.NewsService
	LLMService         interfaces.LLMService
	AgentService       interfaces.AgentService
	AnalysisService    interfaces.AnalysisService
	SchedulerService   interfaces.SchedulerService

	// HTTP handlers
	StatusHandler    *handlers.StatusHandler
	StocksHandler    *handlers.StocksHandler
	HoldingsHandler  *handlers.HoldingsHandler
	AgentHandler     *handlers.AgentHandler
	SchedulerHandler *handlers.SchedulerHandler
}

// New wires the full dependency graph from configuration.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	baseURL := cfg.Market.BaseURL
	if baseURL == "" {
		baseURL = yahoo.DefaultBaseURL
	}
	a.MarketClient = yahoo.NewClient(
		yahoo.WithBaseURL(baseURL),
		yahoo.WithRateLimit(cfg.Market.RateLimit),
		yahoo.WithLogger(logger),
	)

	a.HoldingsService = holdings.NewService(cfg, logger)
	a.PerformanceService = performance.NewService(a.MarketClient, cfg, logger)
	a.EarningsService = earnings.NewService(a.MarketClient, earnings.NewCalendarScraper(logger, nil), cfg, logger)
	a.NewsService = news.NewService(a.MarketClient, cfg, logger)

	llmService, err := llm.NewLLMService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.LLMService = llmService
	a.AgentService = agent.NewService(llmService, logger)

	a.AnalysisService = analysis.NewOrchestrator(
		a.HoldingsService,
		a.PerformanceService,
		a.EarningsService,
		a.NewsService,
		a.AgentService,
		analysis.NewResultStore(),
		logger,
	)

	a.SchedulerService = scheduler.NewService(a.AnalysisService, cfg, logger)

	a.StatusHandler = handlers.NewStatusHandler(cfg, a.SchedulerService, a.LLMService, logger)
	a.StocksHandler = handlers.NewStocksHandler(a.MarketClient, logger)
	a.HoldingsHandler = handlers.NewHoldingsHandler(a.HoldingsService, a.PerformanceService, logger)
	a.AgentHandler = handlers.NewAgentHandler(a.AnalysisService, logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, logger)

	logger.Info().
		Str("holdings_endpoint", cfg.Holdings.EndpointURL).
		Str("llm_provider", string(cfg.LLM.Provider)).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Application initialized")

	return a, nil
}

// Close releases application resources.
func (a *App) Close() error {
	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler during shutdown")
		}
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service during shutdown")
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}

package interfaces

import (
	"context"

	"github.com/ternarybob/folio/internal/models"
)

// HoldingsService fetches and normalizes portfolio holdings.
type HoldingsService interface {
	// Fetch returns the current holdings. Transport failures against the
	// configured endpoint substitute the mock portfolio; malformed payloads
	// surface as errors.
	Fetch(ctx context.Context) (*models.HoldingsSnapshot, error)

	// MockSnapshot returns the built-in mock portfolio.
	MockSnapshot() *models.HoldingsSnapshot
}

// PerformanceService evaluates day-over-day movement for a set of holdings.
type PerformanceService interface {
	// Evaluate fans out quote lookups for every holding and returns the
	// full report. Per-symbol failures produce degraded records, never an
	// overall error.
	Evaluate(ctx context.Context, holdings []models.Holding) (*models.PerformanceReport, error)
}

// EarningsService collects upcoming earnings dates for a set of symbols.
type EarningsService interface {
	// Upcoming returns earnings events inside the configured look-ahead
	// window, sorted ascending by date. Results are cached per symbol set.
	Upcoming(ctx context.Context, symbols []string) ([]models.EarningsEvent, error)

	// ClearCache drops any cached earnings results.
	ClearCache()
}

// NewsService collects recent news for a set of symbols.
type NewsService interface {
	// Recent returns up to maxPerSymbol articles per symbol, sorted by
	// publish time descending. Results are cached per symbol set.
	Recent(ctx context.Context, symbols []string, maxPerSymbol int) ([]models.NewsItem, error)

	// ClearCache drops any cached news results.
	ClearCache()
}

// AgentService generates the portfolio summary narrative.
type AgentService interface {
	// Summarize produces a structured summary from the collected analysis
	// inputs. It never returns an error: provider failures fall back to a
	// deterministic template.
	Summarize(ctx context.Context, result *models.AnalysisResult) *models.PortfolioSummary

	// HasProvider reports whether a real LLM provider is configured.
	HasProvider() bool
}

// AnalysisService orchestrates the full pipeline and stores the latest result.
type AnalysisService interface {
	// Run executes the pipeline. Returns ErrAnalysisInProgress when a run
	// is already active.
	Run(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error)

	// InProgress reports whether a run is currently active.
	InProgress() bool

	// Latest returns the most recent completed result, or nil.
	Latest() *models.AnalysisResult
}

// SchedulerService drives scheduled analysis runs on a cron expression.
type SchedulerService interface {
	// Start begins scheduled execution. Idempotent.
	Start() error

	// Stop halts scheduled execution. Idempotent.
	Stop() error

	// UpdateCron validates and applies a new cron expression. When the
	// scheduler is running the job is rescheduled live.
	UpdateCron(expr string) error

	// TriggerNow runs the analysis immediately, outside the schedule.
	TriggerNow() error

	// Status returns the current scheduler state.
	Status() models.SchedulerStatus

	// IsRunning reports whether the scheduler is started.
	IsRunning() bool
}

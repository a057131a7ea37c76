// Package analysis sequences the holdings, performance, earnings, news, and
// summary stages into a single pipeline run with single-flight admission
// control and a shared latest-result snapshot.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// ErrAnalysisInProgress is returned when a run is requested while another run
// is still active. Callers map it to HTTP 409.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// alertNewsPerSymbol caps news collection during a pipeline run. News is only
// gathered for the high-fluctuation subset, so the cap stays small.
const alertNewsPerSymbol = 3

// Orchestrator implements interfaces.AnalysisService.
type Orchestrator struct {
	holdings    interfaces.HoldingsService
	performance interfaces.PerformanceService
	earnings    interfaces.EarningsService
	news        interfaces.NewsService
	agent       interfaces.AgentService
	store       *ResultStore
	logger      arbor.ILogger

	mu         sync.Mutex
	inProgress bool
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	holdings interfaces.HoldingsService,
	performance interfaces.PerformanceService,
	earnings interfaces.EarningsService,
	news interfaces.NewsService,
	agent interfaces.AgentService,
	store *ResultStore,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		holdings:    holdings,
		performance: performance,
		earnings:    earnings,
		news:        news,
		agent:       agent,
		store:       store,
		logger:      logger,
	}
}

// InProgress reports whether a run is currently active.
func (o *Orchestrator) InProgress() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inProgress
}

// Latest returns the most recent result, or nil when no run has completed.
func (o *Orchestrator) Latest() *models.AnalysisResult {
	return o.store.Get()
}

// Run executes the full pipeline. Only one run may be active at a time; a
// concurrent request fails fast with ErrAnalysisInProgress rather than
// queueing. The returned result always reaches the store, including on panic.
func (o *Orchestrator) Run(ctx context.Context, req models.AnalyzeRequest) (result *models.AnalysisResult, err error) {
	o.mu.Lock()
	if o.inProgress {
		o.mu.Unlock()
		return nil, ErrAnalysisInProgress
	}
	o.inProgress = true
	o.mu.Unlock()

	runID := common.NewAnalysisID()
	startedAt := time.Now().UTC()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("run_id", runID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Analysis run panicked")
			result = o.errorResult(runID, startedAt, fmt.Sprintf("analysis panicked: %v", r))
			err = nil
		}
		if result != nil {
			o.store.Set(result)
		}
		o.mu.Lock()
		o.inProgress = false
		o.mu.Unlock()
	}()

	o.logger.Info().
		Str("run_id", runID).
		Bool("force_refresh", req.ForceRefresh).
		Bool("include_news", req.IncludeNews).
		Bool("include_earnings", req.IncludeEarnings).
		Msg("Starting analysis run")

	if req.ForceRefresh {
		o.earnings.ClearCache()
		o.news.ClearCache()
		o.logger.Debug().Str("run_id", runID).Msg("Collector caches cleared for forced refresh")
	}

	// Stage 1: holdings. Every later stage depends on this output, so a
	// failure here ends the run with an error result.
	snapshot, err := o.holdings.Fetch(ctx)
	if err != nil {
		o.logger.Error().Err(err).Str("run_id", runID).Msg("Holdings fetch failed")
		return o.errorResult(runID, startedAt, fmt.Sprintf("holdings fetch failed: %v", err)), nil
	}

	result = &models.AnalysisResult{
		ID:        runID,
		Holdings:  snapshot,
		StartedAt: startedAt,
	}

	degraded := false

	// Stage 2: performance evaluation across all holdings.
	report, err := o.performance.Evaluate(ctx, snapshot.Holdings)
	if err != nil {
		return o.errorResult(runID, startedAt, fmt.Sprintf("performance evaluation failed: %v", err)), nil
	}
	result.Performance = report.Records
	result.Alerts = report.Alerts
	for _, record := range report.Records {
		if record.Degraded {
			degraded = true
			break
		}
	}

	// Stage 3: earnings for every symbol, news only for the alert subset.
	// Collector failures degrade the run to partial instead of failing it.
	if req.IncludeEarnings {
		events, err := o.earnings.Upcoming(ctx, snapshot.Symbols())
		if err != nil {
			o.logger.Warn().Err(err).Str("run_id", runID).Msg("Earnings collection failed")
			degraded = true
		} else {
			result.Earnings = events
		}
	}

	if req.IncludeNews && len(report.Alerts) > 0 {
		alertSymbols := make([]string, 0, len(report.Alerts))
		for _, alert := range report.Alerts {
			alertSymbols = append(alertSymbols, alert.Symbol)
		}
		items, err := o.news.Recent(ctx, alertSymbols, alertNewsPerSymbol)
		if err != nil {
			o.logger.Warn().Err(err).Str("run_id", runID).Msg("News collection failed")
			degraded = true
		} else {
			result.News = items
		}
	}

	// Stage 4: narrative summary. Never fails.
	result.Summary = o.agent.Summarize(ctx, result)

	result.Status = models.AnalysisStatusCompleted
	if degraded {
		result.Status = models.AnalysisStatusPartial
	}
	result.CompletedAt = time.Now().UTC()
	result.Duration = result.CompletedAt.Sub(startedAt).Round(time.Millisecond).String()

	o.logger.Info().
		Str("run_id", runID).
		Str("status", string(result.Status)).
		Int("holdings", snapshot.Count()).
		Int("alerts", len(result.Alerts)).
		Int("earnings", len(result.Earnings)).
		Int("news", len(result.News)).
		Str("duration", result.Duration).
		Msg("Analysis run finished")

	return result, nil
}

func (o *Orchestrator) errorResult(runID string, startedAt time.Time, message string) *models.AnalysisResult {
	completedAt := time.Now().UTC()
	return &models.AnalysisResult{
		ID:          runID,
		Status:      models.AnalysisStatusError,
		Error:       message,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt).Round(time.Millisecond).String(),
	}
}

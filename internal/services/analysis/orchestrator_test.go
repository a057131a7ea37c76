package analysis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/models"
)

type fakeHoldings struct {
	snapshot *models.HoldingsSnapshot
	err      error
}

func (f *fakeHoldings) Fetch(ctx context.Context) (*models.HoldingsSnapshot, error) {
	return f.snapshot, f.err
}

func (f *fakeHoldings) MockSnapshot() *models.HoldingsSnapshot {
	return f.snapshot
}

type fakePerformance struct {
	report  *models.PerformanceReport
	err     error
	block   chan struct{}
	started chan struct{}
	panics  bool
}

func (f *fakePerformance) Evaluate(ctx context.Context, holdings []models.Holding) (*models.PerformanceReport, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if f.panics {
		panic("quote provider exploded")
	}
	return f.report, f.err
}

type fakeEarnings struct {
	events  []models.EarningsEvent
	err     error
	calls   int
	cleared int
	symbols []string
}

func (f *fakeEarnings) Upcoming(ctx context.Context, symbols []string) ([]models.EarningsEvent, error) {
	f.calls++
	f.symbols = symbols
	return f.events, f.err
}

func (f *fakeEarnings) ClearCache() { f.cleared++ }

type fakeNews struct {
	items   []models.NewsItem
	err     error
	calls   int
	cleared int
	symbols []string
	cap     int
}

func (f *fakeNews) Recent(ctx context.Context, symbols []string, maxPerSymbol int) ([]models.NewsItem, error) {
	f.calls++
	f.symbols = symbols
	f.cap = maxPerSymbol
	return f.items, f.err
}

func (f *fakeNews) ClearCache() { f.cleared++ }

type fakeAgent struct{}

func (f *fakeAgent) Summarize(ctx context.Context, result *models.AnalysisResult) *models.PortfolioSummary {
	return &models.PortfolioSummary{
		Summary:   "test summary",
		ModelUsed: "none",
	}
}

func (f *fakeAgent) HasProvider() bool { return false }

type orchestratorFixture struct {
	holdings    *fakeHoldings
	performance *fakePerformance
	earnings    *fakeEarnings
	news        *fakeNews
	store       *ResultStore
	orch        *Orchestrator
}

func newFixture() *orchestratorFixture {
	snapshot := &models.HoldingsSnapshot{
		Holdings: []models.Holding{
			{Symbol: "AAPL", Name: "Apple Inc.", Shares: 100, CurrentPrice: 150, MarketValue: 15000},
			{Symbol: "TSLA", Name: "Tesla Inc.", Shares: 30, CurrentPrice: 210, MarketValue: 6300},
		},
		Source:     models.HoldingsSourceMock,
		TotalValue: 21300,
		FetchedAt:  time.Now().UTC(),
	}

	f := &orchestratorFixture{
		holdings: &fakeHoldings{snapshot: snapshot},
		performance: &fakePerformance{
			report: &models.PerformanceReport{
				Records: []models.PerformanceRecord{
					{Symbol: "TSLA", ChangePercent: 6.5, MarketValue: 6300},
					{Symbol: "AAPL", ChangePercent: 1.2, MarketValue: 15000},
				},
				Alerts: []models.FluctuationAlert{
					{Symbol: "TSLA", ChangePercent: 6.5, Direction: "up"},
				},
				Threshold: 5.0,
			},
		},
		earnings: &fakeEarnings{events: []models.EarningsEvent{
			{Symbol: "AAPL", EarningsDate: time.Now().Add(5 * 24 * time.Hour)},
		}},
		news: &fakeNews{items: []models.NewsItem{
			{Symbol: "TSLA", Title: "Tesla rallies"},
		}},
		store: NewResultStore(),
	}
	f.orch = NewOrchestrator(f.holdings, f.performance, f.earnings, f.news, &fakeAgent{}, f.store, common.GetLogger())
	return f
}

func TestRunCompletes(t *testing.T) {
	f := newFixture()

	result, err := f.orch.Run(context.Background(), models.DefaultAnalyzeRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, models.AnalysisStatusCompleted, result.Status)
	assert.NotEmpty(t, result.ID)
	assert.Len(t, result.Performance, 2)
	assert.Len(t, result.Alerts, 1)
	assert.Len(t, result.Earnings, 1)
	assert.Len(t, result.News, 1)
	require.NotNil(t, result.Summary)
	assert.Equal(t, "test summary", result.Summary.Summary)
	assert.NotEmpty(t, result.Duration)

	// Stored as the latest snapshot
	assert.Same(t, result, f.store.Get())
	assert.Same(t, result, f.orch.Latest())
	assert.False(t, f.orch.InProgress())
}

func TestRunNewsScopedToAlertSymbols(t *testing.T) {
	f := newFixture()

	_, err := f.orch.Run(context.Background(), models.DefaultAnalyzeRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"TSLA"}, f.news.symbols)
	assert.Equal(t, alertNewsPerSymbol, f.news.cap)
	assert.Equal(t, []string{"AAPL", "TSLA"}, f.earnings.symbols)
}

func TestRunNoAlertsSkipsNews(t *testing.T) {
	f := newFixture()
	f.performance.report.Alerts = nil

	result, err := f.orch.Run(context.Background(), models.DefaultAnalyzeRequest())
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisStatusCompleted, result.Status)
	assert.Zero(t, f.news.calls)
}

func TestRunStagesCanBeDisabled(t *testing.T) {
	f := newFixture()

	result, err := f.orch.Run(context.Background(), models.AnalyzeRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisStatusCompleted, result.Status)
	assert.Zero(t, f.earnings.calls)
	assert.Zero(t, f.news.calls)
	assert.Empty(t, result.Earnings)
	assert.Empty(t, result.News)
}

func TestRunForceRefreshClearsCaches(t *testing.T) {
	f := newFixture()

	_, err := f.orch.Run(context.Background(), models.AnalyzeRequest{ForceRefresh: true, IncludeNews: true, IncludeEarnings: true})
	require.NoError(t, err)

	assert.Equal(t, 1, f.earnings.cleared)
	assert.Equal(t, 1, f.news.cleared)
}

func TestRunConflictWhileInProgress(t *testing.T) {
	f := newFixture()
	f.performance.block = make(chan struct{})
	f.performance.started = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.orch.Run(context.Background(), models.DefaultAnalyzeRequest())
		assert.NoError(t, err)
	}()

	<-f.performance.started
	assert.True(t, f.orch.InProgress())

	_, err := f.orch.Run(context.Background(), models.DefaultAnalyzeRequest())
	assert.ErrorIs(t, err, ErrAnalysisInProgress)

	close(f.performance.block)
	wg.Wait()
	assert.False(t, f.orch.InProgress())
}

func TestRunHoldingsFailureProducesErrorResult(t *testing.T) {
	f := newFixture()
	f.holdings.snapshot = nil
	f.holdings.err = fmt.Errorf("payload was not valid JSON")

	result, err := f.orch.Run(context.Background(), models.DefaultAnalyzeRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, models.AnalysisStatusError, result.Status)
	assert.Contains(t, result.Error, "holdings fetch failed")
	assert.Same(t, result, f.store.Get())
	assert.False(t, f.orch.InProgress())
}

func TestRunCollectorFailureDegradesToPartial(t *testing.T) {
	f := newFixture()
	f.earnings.err = fmt.Errorf("upstream down")

	result, err := f.orch.Run(context.Background(), models.DefaultAnalyzeRequest())
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisStatusPartial, result.Status)
	assert.Empty(t, result.Earnings)
	assert.Len(t, result.News, 1)
}

func TestRunDegradedQuotesProducePartial(t *testing.T) {
	f := newFixture()
	f.performance.report.Records[0].Degraded = true

	result, err := f.orch.Run(context.Background(), models.DefaultAnalyzeRequest())
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisStatusPartial, result.Status)
}

func TestRunPanicRecoversToErrorResult(t *testing.T) {
	f := newFixture()
	f.performance.panics = true

	result, err := f.orch.Run(context.Background(), models.DefaultAnalyzeRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, models.AnalysisStatusError, result.Status)
	assert.Contains(t, result.Error, "analysis panicked")
	assert.Same(t, result, f.store.Get())

	// The flag must not leak after a panic
	assert.False(t, f.orch.InProgress())

	result, err = f.orch.Run(context.Background(), models.AnalyzeRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusError, result.Status)
}

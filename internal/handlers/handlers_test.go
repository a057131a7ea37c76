package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/analysis"
	"github.com/ternarybob/folio/internal/yahoo"
)

type fakeAnalysisService struct {
	result    *models.AnalysisResult
	runErr    error
	latest    *models.AnalysisResult
	inFlight  bool
	lastReq   models.AnalyzeRequest
	runCalled int
}

func (f *fakeAnalysisService) Run(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error) {
	f.runCalled++
	f.lastReq = req
	return f.result, f.runErr
}

func (f *fakeAnalysisService) InProgress() bool               { return f.inFlight }
func (f *fakeAnalysisService) Latest() *models.AnalysisResult { return f.latest }

type fakeSchedulerService struct {
	running    bool
	cronExpr   string
	triggered  int
	updateErr  error
	statusCall int
}

func (f *fakeSchedulerService) Start() error { f.running = true; return nil }
func (f *fakeSchedulerService) Stop() error  { f.running = false; return nil }

func (f *fakeSchedulerService) UpdateCron(expr string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.cronExpr = expr
	return nil
}

func (f *fakeSchedulerService) TriggerNow() error { f.triggered++; return nil }
func (f *fakeSchedulerService) IsRunning() bool   { return f.running }

func (f *fakeSchedulerService) Status() models.SchedulerStatus {
	f.statusCall++
	return models.SchedulerStatus{
		Enabled:  true,
		Running:  f.running,
		CronExpr: f.cronExpr,
	}
}

type fakeStockData struct {
	quote *yahoo.Quote
	bars  []yahoo.Bar
	err   error
}

func (f *fakeStockData) GetQuote(ctx context.Context, symbol string) (*yahoo.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.quote, nil
}

func (f *fakeStockData) GetHistory(ctx context.Context, symbol, period string) ([]yahoo.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bars, nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAnalyzeHandlerSuccess(t *testing.T) {
	svc := &fakeAnalysisService{result: &models.AnalysisResult{
		ID:     "run_1",
		Status: models.AnalysisStatusCompleted,
	}}
	handler := NewAgentHandler(svc, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/agent/analyze", strings.NewReader(`{"force_refresh":true}`))
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.lastReq.ForceRefresh)
	// Unset fields keep their defaults
	assert.True(t, svc.lastReq.IncludeNews)
	assert.True(t, svc.lastReq.IncludeEarnings)
}

func TestAnalyzeHandlerEmptyBody(t *testing.T) {
	svc := &fakeAnalysisService{result: &models.AnalysisResult{ID: "run_1", Status: models.AnalysisStatusCompleted}}
	handler := NewAgentHandler(svc, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/agent/analyze", nil)
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.runCalled)
}

func TestAnalyzeHandlerConflict(t *testing.T) {
	svc := &fakeAnalysisService{runErr: analysis.ErrAnalysisInProgress}
	handler := NewAgentHandler(svc, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/agent/analyze", nil)
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAnalyzeHandlerWrongMethod(t *testing.T) {
	handler := NewAgentHandler(&fakeAnalysisService{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/agent/analyze", nil)
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAgentReadEndpointsWithoutResult(t *testing.T) {
	handler := NewAgentHandler(&fakeAnalysisService{}, common.GetLogger())

	for _, h := range []http.HandlerFunc{
		handler.GetSummaryHandler,
		handler.GetFluctuationsHandler,
		handler.GetEarningsHandler,
		handler.GetNewsHandler,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/agent/x", nil)
		rec := httptest.NewRecorder()
		h(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
}

func TestAgentStatusHandler(t *testing.T) {
	svc := &fakeAnalysisService{
		latest: &models.AnalysisResult{
			ID:          "run_9",
			Status:      models.AnalysisStatusCompleted,
			CompletedAt: time.Now().UTC(),
			Holdings: &models.HoldingsSnapshot{
				Holdings: []models.Holding{{Symbol: "AAPL"}},
			},
		},
	}
	handler := NewAgentHandler(svc, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/agent/status", nil)
	rec := httptest.NewRecorder()
	handler.GetStatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["has_analysis"])
	assert.Equal(t, false, body["in_progress"])
	assert.Equal(t, "run_9", body["analysis_id"])
	assert.Equal(t, float64(1), body["holdings_count"])
}

func TestSchedulerUpdateCronInvalid(t *testing.T) {
	svc := &fakeSchedulerService{cronExpr: "0 9 * * *"}
	svc.updateErr = fmt.Errorf("invalid cron expression")
	handler := NewSchedulerHandler(svc, common.GetLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/scheduler/cron", strings.NewReader(`{"expression":"bad cron"}`))
	rec := httptest.NewRecorder()
	handler.UpdateCronHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "0 9 * * *", svc.cronExpr)
}

func TestSchedulerUpdateCronMissingExpression(t *testing.T) {
	handler := NewSchedulerHandler(&fakeSchedulerService{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/scheduler/cron", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.UpdateCronHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchedulerUpdateCronSuccess(t *testing.T) {
	svc := &fakeSchedulerService{}
	handler := NewSchedulerHandler(svc, common.GetLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/scheduler/cron", strings.NewReader(`{"expression":"0 9,16 * * 1-5"}`))
	rec := httptest.NewRecorder()
	handler.UpdateCronHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0 9,16 * * 1-5", svc.cronExpr)
}

func TestSchedulerLifecycleHandlers(t *testing.T) {
	svc := &fakeSchedulerService{}
	handler := NewSchedulerHandler(svc, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.StartHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler/start", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.running)

	rec = httptest.NewRecorder()
	handler.TriggerHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler/trigger", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.triggered)

	rec = httptest.NewRecorder()
	handler.StopHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler/stop", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.running)
}

func TestGetStockHandler(t *testing.T) {
	stockData := &fakeStockData{quote: &yahoo.Quote{Symbol: "AAPL", Price: 150.5}}
	handler := NewStocksHandler(stockData, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/stock/aapl", nil)
	rec := httptest.NewRecorder()
	handler.GetStockHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "AAPL", body["symbol"])
}

func TestGetStockHandlerNoData(t *testing.T) {
	stockData := &fakeStockData{err: &yahoo.ErrNoData{Symbol: "NOPE"}}
	handler := NewStocksHandler(stockData, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/stock/NOPE", nil)
	rec := httptest.NewRecorder()
	handler.GetStockHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHistoryHandlerInvalidPeriod(t *testing.T) {
	handler := NewStocksHandler(&fakeStockData{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/history/AAPL?period=7w", nil)
	rec := httptest.NewRecorder()
	handler.GetHistoryHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHistoryHandlerEmpty(t *testing.T) {
	handler := NewStocksHandler(&fakeStockData{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/history/AAPL", nil)
	rec := httptest.NewRecorder()
	handler.GetHistoryHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompareHandler(t *testing.T) {
	stockData := &fakeStockData{bars: []yahoo.Bar{{Close: 100}}}
	handler := NewStocksHandler(stockData, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader(`{"tickers":["aapl","msft"]}`))
	rec := httptest.NewRecorder()
	handler.CompareHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	series := body["series"].(map[string]interface{})
	assert.Len(t, series, 2)
	assert.Contains(t, series, "AAPL")
	assert.Contains(t, series, "MSFT")
}

func TestCompareHandlerNoTickers(t *testing.T) {
	handler := NewStocksHandler(&fakeStockData{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader(`{"tickers":[]}`))
	rec := httptest.NewRecorder()
	handler.CompareHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	cfg := common.NewDefaultConfig()
	handler := NewStatusHandler(cfg, &fakeSchedulerService{running: true}, nil, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])

	scheduler := body["scheduler"].(map[string]interface{})
	assert.Equal(t, true, scheduler["running"])

	llm := body["llm"].(map[string]interface{})
	assert.Equal(t, "none", llm["provider"])
	assert.Equal(t, false, llm["configured"])
}

func TestHealthHandlerReportsLLMHealth(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.LLM.Provider = common.LLMProviderOllama

	llmSvc := &fakeLLMService{model: "llama3.2"}
	handler := NewStatusHandler(cfg, &fakeSchedulerService{}, llmSvc, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	llm := decodeBody(t, rec)["llm"].(map[string]interface{})
	assert.Equal(t, true, llm["configured"])
	assert.Equal(t, "llama3.2", llm["model"])
	assert.Equal(t, true, llm["healthy"])
	assert.Equal(t, 1, llmSvc.healthCalls)

	llmSvc.healthErr = fmt.Errorf("daemon not reachable")
	rec = httptest.NewRecorder()
	handler.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	llm = decodeBody(t, rec)["llm"].(map[string]interface{})
	assert.Equal(t, false, llm["healthy"])
	assert.Equal(t, "daemon not reachable", llm["error"])
}

func TestRootHandler(t *testing.T) {
	cfg := common.NewDefaultConfig()
	handler := NewStatusHandler(cfg, &fakeSchedulerService{}, nil, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.RootHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "folio", body["service"])

	// Unknown paths under the catch-all root pattern are 404s
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec = httptest.NewRecorder()
	handler.RootHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHoldingsHandlerUseMock(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantMock   bool
		wantFetchN int
	}{
		{name: "use_mock=true selects mock", query: "?use_mock=true", wantMock: true},
		{name: "bare use_mock selects mock", query: "?use_mock", wantMock: true},
		{name: "use_mock=false fetches live", query: "?use_mock=false", wantFetchN: 1},
		{name: "unparseable value fetches live", query: "?use_mock=maybe", wantFetchN: 1},
		{name: "absent param fetches live", query: "", wantFetchN: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holdings := &fakeHoldingsService{}
			handler := NewHoldingsHandler(holdings, &fakePerformanceService{}, common.GetLogger())

			req := httptest.NewRequest(http.MethodGet, "/api/holdings"+tt.query, nil)
			rec := httptest.NewRecorder()
			handler.GetHoldingsHandler(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantFetchN, holdings.fetchCalls)
			if tt.wantMock {
				assert.Equal(t, "mock", decodeBody(t, rec)["source"])
			}
		})
	}
}

func TestHoldingsHandlerFetchFailure(t *testing.T) {
	holdings := &fakeHoldingsService{err: fmt.Errorf("payload was not valid JSON")}
	handler := NewHoldingsHandler(holdings, &fakePerformanceService{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/holdings", nil)
	rec := httptest.NewRecorder()
	handler.GetHoldingsHandler(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHoldingsFluctuationsHandler(t *testing.T) {
	holdings := &fakeHoldingsService{}
	performance := &fakePerformanceService{report: &models.PerformanceReport{
		Alerts: []models.FluctuationAlert{
			{Symbol: "TSLA", ChangePercent: 6.1, Direction: "up"},
		},
		Threshold: 5.0,
	}}
	handler := NewHoldingsHandler(holdings, performance, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/holdings/fluctuations", nil)
	rec := httptest.NewRecorder()
	handler.GetFluctuationsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, 5.0, body["threshold"])
}

type fakeHoldingsService struct {
	err        error
	fetchCalls int
}

func (f *fakeHoldingsService) Fetch(ctx context.Context) (*models.HoldingsSnapshot, error) {
	f.fetchCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.MockSnapshot(), nil
}

func (f *fakeHoldingsService) MockSnapshot() *models.HoldingsSnapshot {
	return &models.HoldingsSnapshot{
		Holdings: []models.Holding{
			{Symbol: "AAPL", Name: "Apple Inc.", Shares: 100, CurrentPrice: 150, MarketValue: 15000},
		},
		Source:     models.HoldingsSourceMock,
		TotalValue: 15000,
		FetchedAt:  time.Now().UTC(),
	}
}

type fakeLLMService struct {
	model       string
	healthErr   error
	healthCalls int
}

func (f *fakeLLMService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return "", nil
}

func (f *fakeLLMService) ModelName() string           { return f.model }
func (f *fakeLLMService) GetMode() interfaces.LLMMode { return interfaces.LLMModeLocal }
func (f *fakeLLMService) Close() error                { return nil }

func (f *fakeLLMService) HealthCheck(ctx context.Context) error {
	f.healthCalls++
	return f.healthErr
}

type fakePerformanceService struct {
	report *models.PerformanceReport
}

func (f *fakePerformanceService) Evaluate(ctx context.Context, holdings []models.Holding) (*models.PerformanceReport, error) {
	if f.report != nil {
		return f.report, nil
	}
	return &models.PerformanceReport{}, nil
}

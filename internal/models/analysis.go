package models

import "time"

// PerformanceRecord captures the day-over-day movement of one holding.
// A degraded record carries zero prices and the fetch error so that one
// failed quote never sinks the whole evaluation.
type PerformanceRecord struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Shares        float64 `json:"shares"`
	CurrentPrice  float64 `json:"current_price"`
	PreviousClose float64 `json:"previous_close"`
	ChangePercent float64 `json:"change_percent"`
	ChangeAmount  float64 `json:"change_amount"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	Volume        int64   `json:"volume"`
	MarketValue   float64 `json:"market_value"`
	HighFluct     bool    `json:"is_high_fluctuation"`
	Degraded      bool    `json:"degraded,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// FluctuationAlert flags a holding whose absolute change exceeded the
// configured threshold.
type FluctuationAlert struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	ChangePercent float64 `json:"change_percent"`
	ChangeAmount  float64 `json:"change_amount"`
	CurrentPrice  float64 `json:"current_price"`
	PreviousClose float64 `json:"previous_close"`
	Volume        int64   `json:"volume"`
	Direction     string  `json:"direction"` // "up" or "down"
}

// PerformanceReport is the full evaluator output for one portfolio snapshot.
type PerformanceReport struct {
	Records              []PerformanceRecord `json:"performance"`
	Alerts               []FluctuationAlert  `json:"high_fluctuations"`
	Threshold            float64             `json:"threshold"`
	TotalValue           float64             `json:"total_value"`
	HighFluctuationCount int                 `json:"high_fluctuation_count"`
	AnalyzedAt           time.Time           `json:"analyzed_at"`
}

// EarningsEvent is a single upcoming earnings report date.
type EarningsEvent struct {
	Symbol       string    `json:"symbol"`
	CompanyName  string    `json:"company_name,omitempty"`
	EarningsDate time.Time `json:"earnings_date"`
	DaysUntil    int       `json:"days_until"`
	EPSEstimate  float64   `json:"eps_estimate,omitempty"`
	Source       string    `json:"source,omitempty"`
}

// NewsItem is a single news article tied to a holding symbol.
type NewsItem struct {
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher,omitempty"`
	Link        string    `json:"link,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// PortfolioSummary is the structured LLM narrative for an analysis run.
// ModelUsed is "none" when the deterministic fallback produced the text.
type PortfolioSummary struct {
	Summary         string    `json:"summary"`
	KeyInsights     []string  `json:"key_insights"`
	Recommendations []string  `json:"recommendations"`
	RiskFactors     []string  `json:"risk_factors"`
	ModelUsed       string    `json:"model_used"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// AnalysisStatus describes the terminal state of a pipeline run.
type AnalysisStatus string

const (
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusPartial   AnalysisStatus = "partial"
	AnalysisStatusError     AnalysisStatus = "error"
)

// AnalysisResult is the complete output of one pipeline run.
type AnalysisResult struct {
	ID          string              `json:"id"`
	Status      AnalysisStatus      `json:"status"`
	Holdings    *HoldingsSnapshot   `json:"holdings"`
	Performance []PerformanceRecord `json:"performance"`
	Alerts      []FluctuationAlert  `json:"high_fluctuations"`
	Earnings    []EarningsEvent     `json:"upcoming_earnings"`
	News        []NewsItem          `json:"news"`
	Summary     *PortfolioSummary   `json:"summary"`
	Error       string              `json:"error,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
	Duration    string              `json:"duration"`
}

// AnalyzeRequest carries the options for a pipeline run.
type AnalyzeRequest struct {
	ForceRefresh    bool `json:"force_refresh"`
	IncludeNews     bool `json:"include_news"`
	IncludeEarnings bool `json:"include_earnings"`
}

// DefaultAnalyzeRequest returns a request with every stage enabled.
func DefaultAnalyzeRequest() AnalyzeRequest {
	return AnalyzeRequest{
		IncludeNews:     true,
		IncludeEarnings: true,
	}
}

// SchedulerStatus reports the schedule controller state.
type SchedulerStatus struct {
	Enabled   bool       `json:"enabled"`
	Running   bool       `json:"running"`
	CronExpr  string     `json:"cron_expression"`
	JobCount  int        `json:"job_count"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

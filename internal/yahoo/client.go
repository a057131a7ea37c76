package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the Yahoo Finance API.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	// userAgent is required: the API rejects requests without a browser UA.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Client is a Yahoo Finance API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new Yahoo Finance API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a GET request to the API.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Yahoo API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetQuote retrieves the current quote for a symbol via the chart endpoint.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	var result chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &result); err != nil {
		return nil, err
	}

	if result.Chart.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    result.Chart.Error.Description,
			Endpoint:   "/v8/finance/chart/" + symbol,
		}
	}
	if len(result.Chart.Result) == 0 {
		return nil, &ErrNoData{Symbol: symbol}
	}

	meta := result.Chart.Result[0].Meta
	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}

	previousClose := meta.PreviousClose
	if previousClose == 0 {
		previousClose = meta.ChartPreviousClose
	}

	return &Quote{
		Symbol:           meta.Symbol,
		Name:             name,
		Currency:         meta.Currency,
		Price:            meta.RegularMarketPrice,
		PreviousClose:    previousClose,
		DayHigh:          meta.RegularMarketDayHigh,
		DayLow:           meta.RegularMarketDayLow,
		FiftyTwoWeekHigh: meta.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  meta.FiftyTwoWeekLow,
		Volume:           meta.RegularMarketVolume,
		Exchange:         meta.ExchangeName,
	}, nil
}

// GetHistory retrieves daily OHLCV bars for a symbol over the given period.
// Period must be one of ValidPeriods.
func (c *Client) GetHistory(ctx context.Context, symbol, period string) ([]Bar, error) {
	if !IsValidPeriod(period) {
		return nil, fmt.Errorf("invalid period %q (valid: %v)", period, ValidPeriods)
	}

	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", period)

	var result chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &result); err != nil {
		return nil, err
	}

	if result.Chart.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    result.Chart.Error.Description,
			Endpoint:   "/v8/finance/chart/" + symbol,
		}
	}
	if len(result.Chart.Result) == 0 {
		return nil, &ErrNoData{Symbol: symbol}
	}

	cr := result.Chart.Result[0]
	if len(cr.Timestamp) == 0 || len(cr.Indicators.Quote) == 0 {
		return nil, &ErrNoData{Symbol: symbol}
	}

	quote := cr.Indicators.Quote[0]
	bars := make([]Bar, 0, len(cr.Timestamp))
	for i, ts := range cr.Timestamp {
		bar := Bar{Date: time.Unix(ts, 0).UTC()}
		if i < len(quote.Open) {
			bar.Open = toFloat(quote.Open[i])
		}
		if i < len(quote.High) {
			bar.High = toFloat(quote.High[i])
		}
		if i < len(quote.Low) {
			bar.Low = toFloat(quote.Low[i])
		}
		if i < len(quote.Close) {
			bar.Close = toFloat(quote.Close[i])
		}
		if i < len(quote.Volume) {
			bar.Volume = toInt64(quote.Volume[i])
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// GetEarningsDates retrieves upcoming earnings dates for a symbol from the
// quoteSummary calendar events module.
func (c *Client) GetEarningsDates(ctx context.Context, symbol string) ([]EarningsDate, error) {
	params := url.Values{}
	params.Set("modules", "calendarEvents")

	var result quoteSummaryResponse
	if err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params, &result); err != nil {
		return nil, err
	}

	if result.QuoteSummary.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    result.QuoteSummary.Error.Description,
			Endpoint:   "/v10/finance/quoteSummary/" + symbol,
		}
	}
	if len(result.QuoteSummary.Result) == 0 {
		return nil, &ErrNoData{Symbol: symbol}
	}

	earnings := result.QuoteSummary.Result[0].CalendarEvents.Earnings
	dates := make([]EarningsDate, 0, len(earnings.EarningsDate))
	for _, d := range earnings.EarningsDate {
		if d.Raw == 0 {
			continue
		}
		dates = append(dates, EarningsDate{
			Symbol:      symbol,
			Date:        time.Unix(d.Raw, 0).UTC(),
			EPSEstimate: earnings.EarningsAverage.Raw,
		})
	}

	return dates, nil
}

// GetNews retrieves recent news articles mentioning a symbol.
func (c *Client) GetNews(ctx context.Context, symbol string, limit int) ([]NewsArticle, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", symbol)
	params.Set("newsCount", fmt.Sprintf("%d", limit))
	params.Set("quotesCount", "0")

	var result searchResponse
	if err := c.get(ctx, "/v1/finance/search", params, &result); err != nil {
		return nil, err
	}

	articles := make([]NewsArticle, 0, len(result.News))
	for _, n := range result.News {
		article := NewsArticle{
			Title:     n.Title,
			Publisher: n.Publisher,
			Link:      n.Link,
		}
		if n.ProviderPublishTime > 0 {
			article.PublishedAt = time.Unix(n.ProviderPublishTime, 0).UTC()
		}
		if len(n.Thumbnail.Resolutions) > 0 {
			article.Thumbnail = n.Thumbnail.Resolutions[0].URL
		}
		articles = append(articles, article)
		if len(articles) >= limit {
			break
		}
	}

	return articles, nil
}

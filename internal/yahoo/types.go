// Package yahoo provides a client for the Yahoo Finance public quote API.
// This package centralizes all market data interactions for the application.
package yahoo

import (
	"fmt"
	"time"
)

// Quote is a snapshot of a symbol's current trading state.
type Quote struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Currency         string  `json:"currency"`
	Price            float64 `json:"price"`
	PreviousClose    float64 `json:"previous_close"`
	DayHigh          float64 `json:"day_high"`
	DayLow           float64 `json:"day_low"`
	FiftyTwoWeekHigh float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  float64 `json:"fifty_two_week_low"`
	Volume           int64   `json:"volume"`
	Exchange         string  `json:"exchange"`
}

// Bar is a single OHLCV history row.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// EarningsDate is an upcoming or recent earnings report date.
type EarningsDate struct {
	Symbol      string    `json:"symbol"`
	Date        time.Time `json:"date"`
	EPSEstimate float64   `json:"eps_estimate,omitempty"`
}

// NewsArticle is a single article from the news search endpoint.
type NewsArticle struct {
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher"`
	Link        string    `json:"link"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// ValidPeriods are the history ranges accepted by the chart endpoint.
var ValidPeriods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// IsValidPeriod reports whether period is accepted by the chart endpoint.
func IsValidPeriod(period string) bool {
	for _, p := range ValidPeriods {
		if p == period {
			return true
		}
	}
	return false
}

// APIError represents an error response from the Yahoo Finance API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// ErrNoData is returned when the API answered but carried no usable rows.
type ErrNoData struct {
	Symbol string
}

func (e *ErrNoData) Error() string {
	return fmt.Sprintf("no data returned for symbol %s", e.Symbol)
}

// chartResponse is the envelope for the v8 chart endpoint.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency           string  `json:"currency"`
		Symbol             string  `json:"symbol"`
		ExchangeName       string  `json:"exchangeName"`
		LongName           string  `json:"longName"`
		ShortName          string  `json:"shortName"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		PreviousClose      float64 `json:"previousClose"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
		RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
		RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
		RegularMarketVolume  int64   `json:"regularMarketVolume"`
		FiftyTwoWeekHigh     float64 `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow      float64 `json:"fiftyTwoWeekLow"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// quoteSummaryResponse is the envelope for the v10 quoteSummary endpoint.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			CalendarEvents struct {
				Earnings struct {
					EarningsDate []struct {
						Raw int64  `json:"raw"`
						Fmt string `json:"fmt"`
					} `json:"earningsDate"`
					EarningsAverage struct {
						Raw float64 `json:"raw"`
					} `json:"earningsAverage"`
				} `json:"earnings"`
			} `json:"calendarEvents"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// searchResponse is the envelope for the v1 search endpoint.
type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
		Thumbnail           struct {
			Resolutions []struct {
				URL string `json:"url"`
			} `json:"resolutions"`
		} `json:"thumbnail"`
	} `json:"news"`
}

// toFloat unwraps a nullable series value, returning 0 for gaps.
func toFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// toInt64 unwraps a nullable volume value, returning 0 for gaps.
func toInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/yahoo"
)

// StockDataService is the market-data surface the stock endpoints consume.
// Satisfied by *yahoo.Client.
type StockDataService interface {
	GetQuote(ctx context.Context, symbol string) (*yahoo.Quote, error)
	GetHistory(ctx context.Context, symbol, period string) ([]yahoo.Bar, error)
}

// StocksHandler serves ad-hoc quote and history lookups for arbitrary
// tickers, independent of the portfolio.
type StocksHandler struct {
	stockData StockDataService
	logger    arbor.ILogger
}

// NewStocksHandler creates a new stocks handler.
func NewStocksHandler(stockData StockDataService, logger arbor.ILogger) *StocksHandler {
	return &StocksHandler{
		stockData: stockData,
		logger:    logger,
	}
}

// tickerFromPath extracts the trailing path segment as a normalized ticker.
func tickerFromPath(r *http.Request, prefix string) string {
	ticker := strings.TrimPrefix(r.URL.Path, prefix)
	ticker = strings.Trim(ticker, "/")
	return common.NormalizeSymbol(ticker)
}

// GetStockHandler returns the detail quote for one ticker.
func (h *StocksHandler) GetStockHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := tickerFromPath(r, "/api/stock/")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	quote, err := h.stockData.GetQuote(r.Context(), ticker)
	if err != nil {
		h.writeQuoteError(w, ticker, err)
		return
	}

	WriteJSON(w, http.StatusOK, quote)
}

// GetHistoryHandler returns OHLCV history for one ticker. The period defaults
// to 1mo and must be one of the chart endpoint's accepted ranges.
func (h *StocksHandler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := tickerFromPath(r, "/api/history/")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1mo"
	}
	if !yahoo.IsValidPeriod(period) {
		WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid period '%s', must be one of: %s", period, strings.Join(yahoo.ValidPeriods, ", ")))
		return
	}

	bars, err := h.stockData.GetHistory(r.Context(), ticker, period)
	if err != nil {
		h.writeQuoteError(w, ticker, err)
		return
	}
	if len(bars) == 0 {
		WriteError(w, http.StatusNotFound, "No history available for "+ticker)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":  ticker,
		"period":  period,
		"history": bars,
		"count":   len(bars),
	})
}

// CompareHandler returns aligned close-price series for a set of tickers.
// Symbols that fail to resolve are reported in an errors map rather than
// failing the whole comparison.
func (h *StocksHandler) CompareHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Tickers []string `json:"tickers"`
		Period  string   `json:"period"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	tickers := common.NormalizeSymbols(req.Tickers)
	if len(tickers) == 0 {
		WriteError(w, http.StatusBadRequest, "At least one ticker is required")
		return
	}

	period := req.Period
	if period == "" {
		period = "1mo"
	}
	if !yahoo.IsValidPeriod(period) {
		WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid period '%s', must be one of: %s", period, strings.Join(yahoo.ValidPeriods, ", ")))
		return
	}

	series := make(map[string][]yahoo.Bar, len(tickers))
	fetchErrors := make(map[string]string)
	for _, ticker := range tickers {
		bars, err := h.stockData.GetHistory(r.Context(), ticker, period)
		if err != nil {
			h.logger.Warn().Err(err).Str("ticker", ticker).Msg("History fetch failed during comparison")
			fetchErrors[ticker] = err.Error()
			continue
		}
		series[ticker] = bars
	}

	response := map[string]interface{}{
		"period": period,
		"series": series,
	}
	if len(fetchErrors) > 0 {
		response["errors"] = fetchErrors
	}

	WriteJSON(w, http.StatusOK, response)
}

func (h *StocksHandler) writeQuoteError(w http.ResponseWriter, ticker string, err error) {
	var noData *yahoo.ErrNoData
	if errors.As(err, &noData) {
		WriteError(w, http.StatusNotFound, "No data found for "+ticker)
		return
	}

	var apiErr *yahoo.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		WriteError(w, http.StatusNotFound, "No data found for "+ticker)
		return
	}

	h.logger.Error().Err(err).Str("ticker", ticker).Msg("Market data lookup failed")
	WriteError(w, http.StatusBadGateway, "Market data lookup failed: "+err.Error())
}

// Package performance evaluates day-over-day movement for portfolio
// holdings using a bounded pool of concurrent quote lookups.
package performance

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/yahoo"
)

// Quoter is the market data surface the evaluator needs.
type Quoter interface {
	GetQuote(ctx context.Context, symbol string) (*yahoo.Quote, error)
}

// Service implements interfaces.PerformanceService.
type Service struct {
	quoter    Quoter
	logger    arbor.ILogger
	threshold float64
	workers   int
	now       func() time.Time
}

// NewService creates a performance evaluator from configuration.
func NewService(quoter Quoter, cfg *common.Config, logger arbor.ILogger) interfaces.PerformanceService {
	workers := cfg.Analysis.QuoteWorkers
	if workers <= 0 {
		workers = 10
	}
	return &Service{
		quoter:    quoter,
		logger:    logger,
		threshold: cfg.Analysis.FluctuationThreshold,
		workers:   workers,
		now:       time.Now,
	}
}

// Evaluate fans quote lookups out over the worker pool and assembles the
// report. Individual lookup failures produce degraded records; the overall
// call only fails on a cancelled context.
func (s *Service) Evaluate(ctx context.Context, holdings []models.Holding) (*models.PerformanceReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]models.PerformanceRecord, len(holdings))

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i, holding := range holdings {
		wg.Add(1)
		go func(idx int, h models.Holding) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			records[idx] = s.evaluateOne(ctx, h)
		}(i, holding)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Records stay in holdings order; only the alert list is ranked.
	report := &models.PerformanceReport{
		Records:    records,
		Threshold:  s.threshold,
		AnalyzedAt: s.now(),
	}

	for i := range records {
		r := &records[i]
		report.TotalValue += r.MarketValue
		if r.Degraded || r.PreviousClose == 0 {
			continue
		}
		if math.Abs(r.ChangePercent) >= s.threshold {
			r.HighFluct = true
			direction := "up"
			if r.ChangePercent < 0 {
				direction = "down"
			}
			report.Alerts = append(report.Alerts, models.FluctuationAlert{
				Symbol:        r.Symbol,
				Name:          r.Name,
				ChangePercent: r.ChangePercent,
				ChangeAmount:  r.ChangeAmount,
				CurrentPrice:  r.CurrentPrice,
				PreviousClose: r.PreviousClose,
				Volume:        r.Volume,
				Direction:     direction,
			})
		}
	}
	// Biggest movers first. Stable sort keeps holding order as the
	// tiebreak for equal moves.
	sort.SliceStable(report.Alerts, func(a, b int) bool {
		return math.Abs(report.Alerts[a].ChangePercent) > math.Abs(report.Alerts[b].ChangePercent)
	})
	report.HighFluctuationCount = len(report.Alerts)

	s.logger.Info().
		Int("holdings", len(holdings)).
		Int("alerts", report.HighFluctuationCount).
		Float64("threshold", s.threshold).
		Msg("Performance evaluation completed")

	return report, nil
}

// evaluateOne fetches one quote and computes the movement for a holding.
func (s *Service) evaluateOne(ctx context.Context, h models.Holding) models.PerformanceRecord {
	record := models.PerformanceRecord{
		Symbol: h.Symbol,
		Name:   h.Name,
		Shares: h.Shares,
	}

	quote, err := s.quoter.GetQuote(ctx, h.Symbol)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("symbol", h.Symbol).
			Msg("Quote lookup failed, recording degraded entry")
		record.Degraded = true
		record.Error = err.Error()
		record.MarketValue = h.MarketValue
		return record
	}

	record.CurrentPrice = quote.Price
	record.PreviousClose = quote.PreviousClose
	record.DayHigh = quote.DayHigh
	record.DayLow = quote.DayLow
	record.Volume = quote.Volume
	record.MarketValue = h.Shares * quote.Price
	if quote.Name != "" && record.Name == "" {
		record.Name = quote.Name
	}

	if quote.PreviousClose != 0 {
		record.ChangeAmount = quote.Price - quote.PreviousClose
		record.ChangePercent = record.ChangeAmount / quote.PreviousClose * 100
	}

	return record
}

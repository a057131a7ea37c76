// Package earnings collects upcoming earnings dates for portfolio symbols,
// with a TTL cache keyed on the symbol set.
package earnings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/ttlcache"
	"github.com/ternarybob/folio/internal/yahoo"
)

// Provider is the market data surface the collector needs.
type Provider interface {
	GetEarningsDates(ctx context.Context, symbol string) ([]yahoo.EarningsDate, error)
}

// ScrapeBackup is an optional secondary source consulted when the primary
// provider yields nothing for a symbol. Failures are logged, never surfaced.
type ScrapeBackup interface {
	ScrapeEarnings(ctx context.Context, symbol string) ([]models.EarningsEvent, error)
}

// Service implements interfaces.EarningsService.
type Service struct {
	provider   Provider
	backup     ScrapeBackup
	cache      *ttlcache.Cache[[]models.EarningsEvent]
	logger     arbor.ILogger
	workers    int
	windowDays int
	now        func() time.Time
}

// NewService creates an earnings collector from configuration.
// backup may be nil.
func NewService(provider Provider, backup ScrapeBackup, cfg *common.Config, logger arbor.ILogger) interfaces.EarningsService {
	workers := cfg.Analysis.CollectorWorkers
	if workers <= 0 {
		workers = 5
	}
	return &Service{
		provider:   provider,
		backup:     backup,
		cache:      ttlcache.New[[]models.EarningsEvent](cfg.EarningsCacheTTL()),
		logger:     logger,
		workers:    workers,
		windowDays: cfg.Analysis.EarningsWindowDays,
		now:        time.Now,
	}
}

// Upcoming returns earnings events within the look-ahead window for the
// symbol set, ascending by date. Results are cached per symbol set; the
// cache key is order independent.
func (s *Service) Upcoming(ctx context.Context, symbols []string) ([]models.EarningsEvent, error) {
	normalized := common.NormalizeSymbols(symbols)
	if len(normalized) == 0 {
		return []models.EarningsEvent{}, nil
	}

	key := common.SymbolSetKey(normalized)
	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug().
			Str("key", key).
			Int("count", len(cached)).
			Msg("Earnings cache hit")
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([][]models.EarningsEvent, len(normalized))

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i, symbol := range normalized {
		wg.Add(1)
		go func(idx int, sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = s.collectOne(ctx, sym)
		}(i, symbol)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events := make([]models.EarningsEvent, 0)
	for _, r := range results {
		events = append(events, r...)
	}

	sort.SliceStable(events, func(a, b int) bool {
		return events[a].EarningsDate.Before(events[b].EarningsDate)
	})

	s.cache.Set(key, events)

	s.logger.Info().
		Int("symbols", len(normalized)).
		Int("events", len(events)).
		Msg("Earnings collection completed")

	return events, nil
}

// collectOne gathers windowed events for one symbol, falling back to the
// scrape backup when the primary source yields nothing.
func (s *Service) collectOne(ctx context.Context, symbol string) []models.EarningsEvent {
	dates, err := s.provider.GetEarningsDates(ctx, symbol)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("symbol", symbol).
			Msg("Earnings lookup failed")
	}

	events := make([]models.EarningsEvent, 0, len(dates))
	for _, d := range dates {
		if !s.inWindow(d.Date) {
			continue
		}
		events = append(events, models.EarningsEvent{
			Symbol:       d.Symbol,
			EarningsDate: d.Date,
			DaysUntil:    s.daysUntil(d.Date),
			EPSEstimate:  d.EPSEstimate,
			Source:       "api",
		})
	}

	if len(events) > 0 || s.backup == nil {
		return events
	}

	scraped, err := s.backup.ScrapeEarnings(ctx, symbol)
	if err != nil {
		s.logger.Debug().
			Err(err).
			Str("symbol", symbol).
			Msg("Earnings scrape backup failed")
		return events
	}
	for _, e := range scraped {
		if !s.inWindow(e.EarningsDate) {
			continue
		}
		e.DaysUntil = s.daysUntil(e.EarningsDate)
		e.Source = "scrape"
		events = append(events, e)
	}

	return events
}

// inWindow reports whether date falls inside [now, now+windowDays].
func (s *Service) inWindow(date time.Time) bool {
	now := s.now()
	start := now.Truncate(24 * time.Hour)
	end := now.AddDate(0, 0, s.windowDays)
	return !date.Before(start) && !date.After(end)
}

// daysUntil counts whole days from the start of today through date.
func (s *Service) daysUntil(date time.Time) int {
	start := s.now().Truncate(24 * time.Hour)
	return int(date.Sub(start).Hours() / 24)
}

// ClearCache drops all cached earnings results.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

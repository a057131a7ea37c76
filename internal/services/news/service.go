// Package news collects recent news articles for portfolio symbols, with a
// TTL cache keyed on the symbol set.
package news

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/ttlcache"
	"github.com/ternarybob/folio/internal/yahoo"
)

// DefaultMaxPerSymbol caps articles per symbol when the caller passes zero.
const DefaultMaxPerSymbol = 5

// Provider is the market data surface the collector needs.
type Provider interface {
	GetNews(ctx context.Context, symbol string, limit int) ([]yahoo.NewsArticle, error)
}

// Service implements interfaces.NewsService.
type Service struct {
	provider Provider
	cache    *ttlcache.Cache[[]models.NewsItem]
	logger   arbor.ILogger
	workers  int
}

// NewService creates a news collector from configuration.
func NewService(provider Provider, cfg *common.Config, logger arbor.ILogger) interfaces.NewsService {
	workers := cfg.Analysis.CollectorWorkers
	if workers <= 0 {
		workers = 5
	}
	return &Service{
		provider: provider,
		cache:    ttlcache.New[[]models.NewsItem](cfg.NewsCacheTTL()),
		logger:   logger,
		workers:  workers,
	}
}

// Recent returns up to maxPerSymbol articles per symbol, sorted by publish
// time descending. Articles without a timestamp sort oldest. The cache key
// covers both the symbol set and the cap.
func (s *Service) Recent(ctx context.Context, symbols []string, maxPerSymbol int) ([]models.NewsItem, error) {
	if maxPerSymbol <= 0 {
		maxPerSymbol = DefaultMaxPerSymbol
	}

	normalized := common.NormalizeSymbols(symbols)
	if len(normalized) == 0 {
		return []models.NewsItem{}, nil
	}

	key := fmt.Sprintf("%s|%d", common.SymbolSetKey(normalized), maxPerSymbol)
	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug().
			Str("key", key).
			Int("count", len(cached)).
			Msg("News cache hit")
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([][]models.NewsItem, len(normalized))

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i, symbol := range normalized {
		wg.Add(1)
		go func(idx int, sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = s.collectOne(ctx, sym, maxPerSymbol)
		}(i, symbol)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0)
	for _, r := range results {
		items = append(items, r...)
	}

	sort.SliceStable(items, func(a, b int) bool {
		return items[a].PublishedAt.After(items[b].PublishedAt)
	})

	s.cache.Set(key, items)

	s.logger.Info().
		Int("symbols", len(normalized)).
		Int("articles", len(items)).
		Msg("News collection completed")

	return items, nil
}

// collectOne gathers capped articles for one symbol. Failures degrade to an
// empty list for that symbol.
func (s *Service) collectOne(ctx context.Context, symbol string, limit int) []models.NewsItem {
	articles, err := s.provider.GetNews(ctx, symbol, limit)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("symbol", symbol).
			Msg("News lookup failed")
		return nil
	}

	items := make([]models.NewsItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, models.NewsItem{
			Symbol:      symbol,
			Title:       a.Title,
			Publisher:   a.Publisher,
			Link:        a.Link,
			Thumbnail:   a.Thumbnail,
			PublishedAt: a.PublishedAt,
		})
		if len(items) >= limit {
			break
		}
	}
	return items
}

// ClearCache drops all cached news results.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

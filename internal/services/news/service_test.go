package news

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/yahoo"
)

type fakeProvider struct {
	articles map[string][]yahoo.NewsArticle
	errs     map[string]error
	calls    int32
}

func (f *fakeProvider) GetNews(ctx context.Context, symbol string, limit int) ([]yahoo.NewsArticle, error) {
	atomic.AddInt32(&f.calls, 1)
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	articles := f.articles[symbol]
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

func newService(t *testing.T, provider Provider) *Service {
	t.Helper()
	cfg := common.NewDefaultConfig()
	return NewService(provider, cfg, common.GetLogger()).(*Service)
}

func TestRecentSortsNewestFirst(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	provider := &fakeProvider{articles: map[string][]yahoo.NewsArticle{
		"AAPL": {
			{Title: "old", PublishedAt: base.Add(-48 * time.Hour)},
			{Title: "new", PublishedAt: base},
		},
		"MSFT": {
			{Title: "mid", PublishedAt: base.Add(-24 * time.Hour)},
		},
	}}
	svc := newService(t, provider)

	items, err := svc.Recent(context.Background(), []string{"AAPL", "MSFT"}, 5)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "new", items[0].Title)
	assert.Equal(t, "mid", items[1].Title)
	assert.Equal(t, "old", items[2].Title)
}

func TestRecentMissingTimestampSortsOldest(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	provider := &fakeProvider{articles: map[string][]yahoo.NewsArticle{
		"AAPL": {
			{Title: "undated"}, // zero time
			{Title: "dated", PublishedAt: base},
		},
	}}
	svc := newService(t, provider)

	items, err := svc.Recent(context.Background(), []string{"AAPL"}, 5)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "dated", items[0].Title)
	assert.Equal(t, "undated", items[1].Title)
}

func TestRecentPerSymbolCap(t *testing.T) {
	articles := make([]yahoo.NewsArticle, 10)
	for i := range articles {
		articles[i] = yahoo.NewsArticle{
			Title:       fmt.Sprintf("article %d", i),
			PublishedAt: time.Now().Add(-time.Duration(i) * time.Hour),
		}
	}
	provider := &fakeProvider{articles: map[string][]yahoo.NewsArticle{"AAPL": articles}}
	svc := newService(t, provider)

	items, err := svc.Recent(context.Background(), []string{"AAPL"}, 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestRecentCacheHit(t *testing.T) {
	provider := &fakeProvider{articles: map[string][]yahoo.NewsArticle{
		"AAPL": {{Title: "a", PublishedAt: time.Now()}},
	}}
	svc := newService(t, provider)

	_, err := svc.Recent(context.Background(), []string{"AAPL"}, 5)
	require.NoError(t, err)

	_, err = svc.Recent(context.Background(), []string{"aapl"}, 5)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.calls))
}

func TestRecentCacheKeyIncludesCap(t *testing.T) {
	provider := &fakeProvider{articles: map[string][]yahoo.NewsArticle{
		"AAPL": {{Title: "a", PublishedAt: time.Now()}},
	}}
	svc := newService(t, provider)

	_, err := svc.Recent(context.Background(), []string{"AAPL"}, 5)
	require.NoError(t, err)

	// Different cap must bypass the cache entry for the same symbol set
	_, err = svc.Recent(context.Background(), []string{"AAPL"}, 3)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&provider.calls))
}

func TestRecentProviderFailureIsNotFatal(t *testing.T) {
	provider := &fakeProvider{
		articles: map[string][]yahoo.NewsArticle{
			"GOOD": {{Title: "works", PublishedAt: time.Now()}},
		},
		errs: map[string]error{"BAD": fmt.Errorf("blocked")},
	}
	svc := newService(t, provider)

	items, err := svc.Recent(context.Background(), []string{"GOOD", "BAD"}, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "GOOD", items[0].Symbol)
}

func TestRecentEmptySymbols(t *testing.T) {
	svc := newService(t, &fakeProvider{})

	items, err := svc.Recent(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRecentZeroCapUsesDefault(t *testing.T) {
	articles := make([]yahoo.NewsArticle, 10)
	for i := range articles {
		articles[i] = yahoo.NewsArticle{Title: fmt.Sprintf("a%d", i), PublishedAt: time.Now()}
	}
	provider := &fakeProvider{articles: map[string][]yahoo.NewsArticle{"AAPL": articles}}
	svc := newService(t, provider)

	items, err := svc.Recent(context.Background(), []string{"AAPL"}, 0)
	require.NoError(t, err)
	assert.Len(t, items, DefaultMaxPerSymbol)
}

func TestClearCache(t *testing.T) {
	provider := &fakeProvider{articles: map[string][]yahoo.NewsArticle{
		"AAPL": {{Title: "a", PublishedAt: time.Now()}},
	}}
	svc := newService(t, provider)

	_, err := svc.Recent(context.Background(), []string{"AAPL"}, 5)
	require.NoError(t, err)

	svc.ClearCache()

	_, err = svc.Recent(context.Background(), []string{"AAPL"}, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&provider.calls))
}

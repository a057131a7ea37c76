// Package holdings fetches portfolio holdings from a configurable upstream
// endpoint and normalizes the varied payload shapes brokers produce.
package holdings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// Service implements interfaces.HoldingsService.
type Service struct {
	endpointURL string
	authToken   string
	httpClient  *http.Client
	logger      arbor.ILogger
	now         func() time.Time
}

// NewService creates a holdings service from configuration.
func NewService(cfg *common.Config, logger arbor.ILogger) interfaces.HoldingsService {
	return &Service{
		endpointURL: cfg.Holdings.EndpointURL,
		authToken:   cfg.Holdings.AuthToken,
		httpClient: &http.Client{
			Timeout: cfg.HoldingsTimeout(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Fetch returns the current holdings snapshot. When no endpoint is
// configured, or the endpoint is unreachable, the mock portfolio is
// substituted. Malformed payloads are surfaced as errors so that bad data
// never silently degrades to mock.
func (s *Service) Fetch(ctx context.Context) (*models.HoldingsSnapshot, error) {
	if s.endpointURL == "" {
		s.logger.Debug().Msg("No holdings endpoint configured, using mock portfolio")
		return s.MockSnapshot(), nil
	}

	payload, err := s.fetchRaw(ctx)
	if err != nil {
		var malformed *malformedPayloadError
		if errors.As(err, &malformed) {
			return nil, err
		}
		s.logger.Warn().
			Err(err).
			Str("endpoint", s.endpointURL).
			Msg("Holdings endpoint unreachable, substituting mock portfolio")
		return s.MockSnapshot(), nil
	}

	snapshot, err := s.normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize holdings payload: %w", err)
	}

	s.logger.Info().
		Int("count", snapshot.Count()).
		Str("source", string(snapshot.Source)).
		Msg("Holdings fetched")

	return snapshot, nil
}

// fetchRaw retrieves and decodes the endpoint payload. Transport failures
// (connection errors, timeouts, non-2xx statuses) are returned so the
// caller can substitute the mock portfolio.
func (s *Service) fetchRaw(ctx context.Context) (interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpointURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach holdings endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("holdings endpoint returned status %d", resp.StatusCode)
	}

	var payload interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		// Payload arrived but is not JSON: this is a data problem, not a
		// transport problem, and must not degrade to mock.
		return nil, &malformedPayloadError{cause: err}
	}

	return payload, nil
}

// normalize maps an arbitrary payload into the canonical snapshot.
func (s *Service) normalize(payload interface{}) (*models.HoldingsSnapshot, error) {
	records, dropped, err := extractRecords(payload)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		s.logger.Warn().Int("dropped", dropped).Msg("Dropped non-object holdings entries")
	}

	holdings := make([]models.Holding, 0, len(records))
	for _, record := range records {
		h, err := normalizeRecord(record)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping unnormalizable holdings record")
			continue
		}
		holdings = append(holdings, h)
	}

	// An empty portfolio is a valid snapshot, not an error.
	return &models.HoldingsSnapshot{
		Holdings:   holdings,
		Source:     models.HoldingsSourceEndpoint,
		TotalValue: totalValue(holdings),
		FetchedAt:  s.now(),
	}, nil
}

// malformedPayloadError marks a decode failure so Fetch can distinguish it
// from transport failures.
type malformedPayloadError struct {
	cause error
}

func (e *malformedPayloadError) Error() string {
	return fmt.Sprintf("malformed holdings payload: %v", e.cause)
}

func (e *malformedPayloadError) Unwrap() error {
	return e.cause
}

func totalValue(holdings []models.Holding) float64 {
	var total float64
	for _, h := range holdings {
		total += h.MarketValue
	}
	return total
}

// MockSnapshot returns the built-in mock portfolio used when no live
// endpoint is available.
func (s *Service) MockSnapshot() *models.HoldingsSnapshot {
	holdings := []models.Holding{
		{Symbol: "AAPL", Name: "Apple Inc.", Shares: 100, AverageCost: 150.0, Sector: "Technology"},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Shares: 50, AverageCost: 350.0, Sector: "Technology"},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", Shares: 25, AverageCost: 140.0, Sector: "Communication Services"},
		{Symbol: "TSLA", Name: "Tesla Inc.", Shares: 30, AverageCost: 200.0, Sector: "Consumer Cyclical"},
		{Symbol: "NVDA", Name: "NVIDIA Corporation", Shares: 40, AverageCost: 500.0, Sector: "Technology"},
	}

	return &models.HoldingsSnapshot{
		Holdings:  holdings,
		Source:    models.HoldingsSourceMock,
		FetchedAt: s.now(),
	}
}

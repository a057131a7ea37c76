// Package agent turns an aggregated analysis run into a structured narrative
// summary via a pluggable LLM provider, with a deterministic template fallback
// when no provider is configured or the provider call fails.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// Service implements interfaces.AgentService.
type Service struct {
	provider interfaces.LLMService
	logger   arbor.ILogger
	now      func() time.Time
}

// NewService creates the summary generator. The provider may be nil, in which
// case every summary comes from the template fallback.
func NewService(provider interfaces.LLMService, logger arbor.ILogger) interfaces.AgentService {
	return &Service{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// HasProvider reports whether a narrative provider is configured.
func (s *Service) HasProvider() bool {
	return s.provider != nil
}

// Summarize produces the portfolio narrative for a completed analysis run.
// It never returns an error: a missing provider yields the template summary
// with ModelUsed "none", and a provider failure yields the template summary
// with ModelUsed "error".
func (s *Service) Summarize(ctx context.Context, result *models.AnalysisResult) *models.PortfolioSummary {
	if s.provider == nil {
		s.logger.Debug().Msg("No narrative provider configured, using template summary")
		return s.fallbackSummary(result, "none")
	}

	narrative, err := s.generate(ctx, result)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("model", s.provider.ModelName()).
			Msg("Narrative provider failed, using template summary")
		summary := s.fallbackSummary(result, "error")
		summary.Summary = fmt.Sprintf("%s (narrative generation failed: %v)", summary.Summary, err)
		return summary
	}

	summaryText, insights, recommendations, risks := parseNarrative(narrative)
	if summaryText == "" {
		// Provider returned text but nothing landed in the summary bucket
		summaryText = s.templateText(result)
	}

	return &models.PortfolioSummary{
		Summary:         summaryText,
		KeyInsights:     insights,
		Recommendations: recommendations,
		RiskFactors:     risks,
		ModelUsed:       s.provider.ModelName(),
		GeneratedAt:     s.now().UTC(),
	}
}

func (s *Service) generate(ctx context.Context, result *models.AnalysisResult) (string, error) {
	messages := []interfaces.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildContext(result)},
	}

	startTime := time.Now()
	narrative, err := s.provider.Chat(ctx, messages)
	if err != nil {
		return "", err
	}

	s.logger.Debug().
		Str("model", s.provider.ModelName()).
		Int("narrative_length", len(narrative)).
		Dur("duration", time.Since(startTime)).
		Msg("Narrative generated")

	return narrative, nil
}

// fallbackSummary builds the deterministic summary used when no provider is
// available. It references the exact counts from the run so the output is
// still useful without a model.
func (s *Service) fallbackSummary(result *models.AnalysisResult, modelUsed string) *models.PortfolioSummary {
	summary := &models.PortfolioSummary{
		Summary:     s.templateText(result),
		ModelUsed:   modelUsed,
		GeneratedAt: s.now().UTC(),
	}

	for i, alert := range result.Alerts {
		if i >= maxContextAlerts {
			break
		}
		summary.KeyInsights = append(summary.KeyInsights,
			fmt.Sprintf("%s moved %+.2f%% today", alert.Symbol, alert.ChangePercent))
	}

	for i, event := range result.Earnings {
		if i >= maxContextEarnings {
			break
		}
		summary.KeyInsights = append(summary.KeyInsights,
			fmt.Sprintf("%s reports earnings on %s", event.Symbol, event.EarningsDate.Format("2006-01-02")))
	}

	return summary
}

func (s *Service) templateText(result *models.AnalysisResult) string {
	holdingsCount := 0
	if result.Holdings != nil {
		holdingsCount = result.Holdings.Count()
	}
	return fmt.Sprintf(
		"Portfolio analysis of %d holdings found %d high fluctuation alerts, %d upcoming earnings reports, and %d recent news articles.",
		holdingsCount, len(result.Alerts), len(result.Earnings), len(result.News))
}

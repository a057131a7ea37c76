package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
)

// NewLLMService creates the appropriate LLM service implementation based on
// configuration. A nil service with a nil error is returned when the provider
// is "none"; callers fall back to template summaries in that case.
func NewLLMService(cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	provider := cfg.LLM.Provider
	if provider == "" {
		provider = common.LLMProviderNone
	}

	logger.Info().Str("provider", string(provider)).Msg("Initializing LLM service")

	switch provider {
	case common.LLMProviderNone:
		logger.Info().Msg("No LLM provider configured, summaries will use the template fallback")
		return nil, nil

	case common.LLMProviderClaude:
		service, err := NewClaudeService(&cfg.LLM, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude LLM service: %w", err)
		}
		return service, nil

	case common.LLMProviderGemini:
		service, err := NewGeminiService(&cfg.LLM, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini LLM service: %w", err)
		}
		return service, nil

	case common.LLMProviderOllama:
		service, err := NewOllamaService(&cfg.LLM, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama LLM service: %w", err)
		}
		return service, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider '%s': must be claude, gemini, ollama, or none", provider)
	}
}

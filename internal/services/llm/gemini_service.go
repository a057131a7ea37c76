package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiService implements the LLMService interface using Google Gemini models.
type GeminiService struct {
	config  *common.LLMConfig
	logger  arbor.ILogger
	client  *genai.Client
	model   string
	timeout time.Duration
	retry   geminiRetryConfig
}

// convertMessagesToGemini converts []interfaces.Message to Gemini Content format.
// Maps Role values to provider's expected values and maintains chronological ordering.
// Extracts system messages separately for use with SystemInstruction.
// Returns the user/model messages, the first system message content (if any), and an error.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	// Check that at least one message has role "user"
	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	// Convert messages to Gemini format, excluding system messages
	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		// Handle system messages separately
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue // Don't add system messages to contents
		}

		// Map Role values to Gemini expected values
		var geminiRole string
		switch msg.Role {
		case "assistant":
			geminiRole = genai.RoleModel
		default:
			geminiRole = genai.RoleUser // Default to user for unknown roles
		}

		part := genai.NewPartFromText(msg.Content)
		content := &genai.Content{
			Role:  geminiRole,
			Parts: []*genai.Part{part},
		}

		contents = append(contents, content)
	}

	return contents, systemText, nil
}

// NewGeminiService creates a new Gemini LLM service instance.
//
// Requires a Google API key in the configuration (set via GOOGLE_API_KEY,
// FOLIO_LLM_GOOGLE_API_KEY, or llm.google_api_key in config).
func NewGeminiService(llmConfig *common.LLMConfig, logger arbor.ILogger) (*GeminiService, error) {
	if llmConfig.GoogleAPIKey == "" {
		return nil, fmt.Errorf("Google API key is required for Gemini service (set via GOOGLE_API_KEY, FOLIO_LLM_GOOGLE_API_KEY, or llm.google_api_key in config)")
	}

	// Set default model name if not specified
	model := llmConfig.Model
	if model == "" {
		model = defaultGeminiModel
	}

	// Parse timeout duration
	timeout, err := time.ParseDuration(llmConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", llmConfig.Timeout, err)
	}

	// Initialize genai client
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  llmConfig.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  llmConfig,
		logger:  logger,
		client:  client,
		model:   model,
		timeout: timeout,
		retry:   defaultGeminiRetryConfig(),
	}

	logger.Debug().
		Str("model", model).
		Dur("timeout", timeout).
		Float32("temperature", llmConfig.Temperature).
		Msg("Gemini LLM service initialized successfully")

	return service, nil
}

// Chat generates a completion response based on the conversation history.
func (s *GeminiService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Msg("Starting Gemini chat completion")

	response, err := s.generateWithRetry(timeoutCtx, messages)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Gemini chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	duration := time.Since(startTime)
	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", duration).
		Msg("Gemini chat completion completed successfully")

	return response, nil
}

// ModelName returns the configured Gemini model identifier.
func (s *GeminiService) ModelName() string {
	return s.model
}

// HealthCheck verifies the Gemini service is operational with a minimal probe.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	s.logger.Debug().Msg("Running Gemini LLM service health check")

	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	testMessages := []interfaces.Message{
		{
			Role:    "user",
			Content: "ping",
		},
	}

	response, err := s.generateCompletion(healthCheckCtx, testMessages)
	if err != nil {
		return fmt.Errorf("Gemini health check failed: %w", err)
	}

	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Gemini probe returned empty response")
	}

	s.logger.Debug().
		Str("model", s.model).
		Msg("Gemini LLM service health check passed")

	return nil
}

// GetMode returns the current operational mode of the LLM service.
func (s *GeminiService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

// Close releases resources and performs cleanup operations.
func (s *GeminiService) Close() error {
	s.logger.Debug().Msg("Closing Gemini LLM service")

	// Clear client reference (genai.Client doesn't require explicit Close)
	s.client = nil

	return nil
}

// generateCompletion encapsulates the Gemini chat completion logic.
func (s *GeminiService) generateCompletion(ctx context.Context, messages []interfaces.Message) (string, error) {
	geminiContents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}

	// Set SystemInstruction if system message exists
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, geminiContents, config)
	if err != nil {
		return "", fmt.Errorf("chat generation failed: %w", err)
	}

	// Extract text from response, iterating candidates until non-empty text is found
	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from chat model")
	}

	return response.String(), nil
}

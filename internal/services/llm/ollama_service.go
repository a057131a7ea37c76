package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
)

const (
	defaultOllamaModel = "llama3.1"
	defaultOllamaURL   = "http://localhost:11434"
)

// OllamaService implements the LLMService interface against a local Ollama
// daemon using its HTTP chat API. No API key is required.
type OllamaService struct {
	config     *common.LLMConfig
	logger     arbor.ILogger
	httpClient *http.Client
	baseURL    string
	model      string
	timeout    time.Duration
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaChatOptions   `json:"options"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatOptions struct {
	Temperature float32 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// NewOllamaService creates a new Ollama LLM service instance.
func NewOllamaService(llmConfig *common.LLMConfig, logger arbor.ILogger) (*OllamaService, error) {
	baseURL := strings.TrimRight(llmConfig.OllamaURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	model := llmConfig.Model
	if model == "" {
		model = defaultOllamaModel
	}

	timeout, err := time.ParseDuration(llmConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", llmConfig.Timeout, err)
	}

	service := &OllamaService{
		config:     llmConfig,
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		model:      model,
		timeout:    timeout,
	}

	logger.Debug().
		Str("model", model).
		Str("url", baseURL).
		Dur("timeout", timeout).
		Msg("Ollama LLM service initialized successfully")

	return service, nil
}

// Chat generates a completion response based on the conversation history.
func (s *OllamaService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Msg("Starting Ollama chat completion")

	response, err := s.generateCompletion(timeoutCtx, messages)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Ollama chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	duration := time.Since(startTime)
	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", duration).
		Msg("Ollama chat completion completed successfully")

	return response, nil
}

// ModelName returns the configured Ollama model identifier.
func (s *OllamaService) ModelName() string {
	return s.model
}

// HealthCheck verifies the Ollama daemon is reachable. The tags endpoint is
// used instead of a chat probe so the check stays cheap even with large models.
func (s *OllamaService) HealthCheck(ctx context.Context) error {
	s.logger.Debug().Msg("Running Ollama LLM service health check")

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(healthCheckCtx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama daemon is not reachable at %s: %w", s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama health check returned status %d", resp.StatusCode)
	}

	s.logger.Debug().
		Str("model", s.model).
		Msg("Ollama LLM service health check passed")

	return nil
}

// GetMode returns the current operational mode of the LLM service.
func (s *OllamaService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeLocal
}

// Close releases resources and performs cleanup operations.
func (s *OllamaService) Close() error {
	s.logger.Debug().Msg("Closing Ollama LLM service")
	s.httpClient.CloseIdleConnections()
	return nil
}

// generateCompletion encapsulates the Ollama chat API call.
func (s *OllamaService) generateCompletion(ctx context.Context, messages []interfaces.Message) (string, error) {
	chatMessages := make([]ollamaChatMessage, 0, len(messages))
	for _, msg := range messages {
		role := msg.Role
		switch role {
		case "system", "assistant", "user":
		default:
			role = "user"
		}
		chatMessages = append(chatMessages, ollamaChatMessage{Role: role, Content: msg.Content})
	}

	reqBody := ollamaChatRequest{
		Model:    s.model,
		Messages: chatMessages,
		Stream:   false,
		Options:  ollamaChatOptions{Temperature: s.config.Temperature},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Ollama API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("Ollama API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if strings.TrimSpace(chatResp.Message.Content) == "" {
		return "", fmt.Errorf("no response generated from Ollama")
	}

	return chatResp.Message.Content, nil
}

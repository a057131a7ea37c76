// Package interfaces defines the service contracts wired together in app.
package interfaces

import "context"

// Message represents a single turn in an LLM conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// LLMMode indicates where the model runs.
type LLMMode string

const (
	// LLMModeCloud indicates a hosted provider (Claude, Gemini).
	LLMModeCloud LLMMode = "cloud"
	// LLMModeLocal indicates a locally hosted model (Ollama).
	LLMModeLocal LLMMode = "local"
)

// LLMService generates chat completions from a configured provider.
type LLMService interface {
	// Chat generates a completion for the conversation history.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ModelName returns the configured model identifier.
	ModelName() string

	// GetMode returns whether the provider is cloud or local.
	GetMode() LLMMode

	// HealthCheck verifies the provider is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}

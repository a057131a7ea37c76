package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
)

func TestConvertMessagesToClaude(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "you are helpful"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "bye"},
	}

	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	require.NoError(t, err)

	assert.Equal(t, "you are helpful", systemText)
	assert.Len(t, claudeMessages, 3)
}

func TestConvertMessagesToClaudeRequiresUser(t *testing.T) {
	_, _, err := convertMessagesToClaude([]interfaces.Message{
		{Role: "system", Content: "no user here"},
	})
	require.Error(t, err)

	_, _, err = convertMessagesToClaude(nil)
	require.Error(t, err)
}

func TestConvertMessagesToGemini(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "instructions"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}

	contents, systemText, err := convertMessagesToGemini(messages)
	require.NoError(t, err)

	assert.Equal(t, "instructions", systemText)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
}

func newOllamaConfig(url string) *common.LLMConfig {
	cfg := common.NewDefaultConfig()
	cfg.LLM.Provider = common.LLMProviderOllama
	cfg.LLM.OllamaURL = url
	cfg.LLM.Model = "test-model"
	return &cfg.LLM
}

func TestOllamaChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaChatMessage{Role: "assistant", Content: "pong"},
			Done:    true,
		})
	}))
	defer server.Close()

	svc, err := NewOllamaService(newOllamaConfig(server.URL), common.GetLogger())
	require.NoError(t, err)

	response, err := svc.Chat(context.Background(), []interfaces.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "ping"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", response)
	assert.Equal(t, interfaces.LLMModeLocal, svc.GetMode())
	assert.Equal(t, "test-model", svc.ModelName())
}

func TestOllamaChatErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	svc, err := NewOllamaService(newOllamaConfig(server.URL), common.GetLogger())
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), []interfaces.Message{{Role: "user", Content: "ping"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	svc, err := NewOllamaService(newOllamaConfig(server.URL), common.GetLogger())
	require.NoError(t, err)

	assert.NoError(t, svc.HealthCheck(context.Background()))
}

func TestFactoryNoneProvider(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.LLM.Provider = common.LLMProviderNone

	service, err := NewLLMService(cfg, common.GetLogger())
	require.NoError(t, err)
	assert.Nil(t, service)
}

func TestFactoryClaudeRequiresKey(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.LLM.Provider = common.LLMProviderClaude
	cfg.LLM.AnthropicAPIKey = ""

	_, err := NewLLMService(cfg, common.GetLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestFactoryUnknownProvider(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.LLM.Provider = common.LLMProvider("bogus")

	_, err := NewLLMService(cfg, common.GetLogger())
	require.Error(t, err)
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, isRateLimitError(nil))
	assert.False(t, isRateLimitError(errors.New("connection refused")))
	assert.True(t, isRateLimitError(errors.New("Error 429, Message: quota exceeded")))
	assert.True(t, isRateLimitError(errors.New("Status: RESOURCE_EXHAUSTED")))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: quota. Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := extractRetryDelay(err)
	assert.InDelta(t, 45.387, delay.Seconds(), 0.01)

	assert.Equal(t, time.Duration(0), extractRetryDelay(errors.New("no delay here")))
	assert.Equal(t, time.Duration(0), extractRetryDelay(nil))
}

func TestBackoffCappedAtMax(t *testing.T) {
	cfg := defaultGeminiRetryConfig()

	first := cfg.backoffFor(0, 0)
	assert.Equal(t, cfg.InitialBackoff, first)

	// API-suggested delay overrides the configured base.
	suggested := cfg.backoffFor(0, 20*time.Second)
	assert.Equal(t, 25*time.Second, suggested)

	// Repeated attempts grow but never exceed the cap.
	last := cfg.backoffFor(10, 0)
	assert.Equal(t, cfg.MaxBackoff, last)
}

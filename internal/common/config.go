package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	Holdings  HoldingsConfig  `toml:"holdings"`
	Market    MarketConfig    `toml:"market"`
	Analysis  AnalysisConfig  `toml:"analysis"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	LLM       LLMConfig       `toml:"llm"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// HoldingsConfig configures the upstream holdings endpoint.
type HoldingsConfig struct {
	EndpointURL string `toml:"endpoint_url"` // Empty: mock portfolio is always used
	AuthToken   string `toml:"auth_token"`   // Optional bearer token
	Timeout     string `toml:"timeout"`      // e.g. "60s"
}

// MarketConfig configures the market data client.
type MarketConfig struct {
	BaseURL   string `toml:"base_url"`  // Empty: provider default
	RateLimit int    `toml:"rate_limit" validate:"gte=0"`
	Timeout   string `toml:"timeout"` // e.g. "10s"
}

// AnalysisConfig configures the evaluator and collectors.
type AnalysisConfig struct {
	FluctuationThreshold float64 `toml:"fluctuation_threshold" validate:"gt=0"`
	QuoteWorkers         int     `toml:"quote_workers" validate:"gt=0"`
	CollectorWorkers     int     `toml:"collector_workers" validate:"gt=0"`
	EarningsCache        string  `toml:"earnings_cache"`       // TTL, e.g. "4h"
	NewsCache            string  `toml:"news_cache"`           // TTL, e.g. "30m"
	EarningsWindowDays   int     `toml:"earnings_window_days" validate:"gt=0"`
}

// SchedulerConfig configures the scheduled analysis job.
type SchedulerConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"` // Standard 5-field cron expression
}

// LLMProvider identifies the summary model backend.
type LLMProvider string

const (
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderOllama LLMProvider = "ollama"
	LLMProviderNone   LLMProvider = "none"
)

// LLMConfig contains the unified configuration for summary providers.
type LLMConfig struct {
	Provider        LLMProvider `toml:"provider" validate:"oneof=claude gemini ollama none"`
	Model           string      `toml:"model"`
	AnthropicAPIKey string      `toml:"anthropic_api_key"`
	GoogleAPIKey    string      `toml:"google_api_key"`
	OllamaURL       string      `toml:"ollama_url"`
	Timeout         string      `toml:"timeout"`
	Temperature     float32     `toml:"temperature"`
	MaxTokens       int         `toml:"max_tokens"`
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings should be exposed in folio.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Holdings: HoldingsConfig{
			EndpointURL: "",
			Timeout:     "60s",
		},
		Market: MarketConfig{
			RateLimit: 10, // Requests per second against the quote provider
			Timeout:   "10s",
		},
		Analysis: AnalysisConfig{
			FluctuationThreshold: 5.0,
			QuoteWorkers:         10,
			CollectorWorkers:     5,
			EarningsCache:        "4h",
			NewsCache:            "30m",
			EarningsWindowDays:   30,
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Cron:    "0 9,16 * * 1-5", // Weekdays at 09:00 and 16:00
		},
		LLM: LLMConfig{
			Provider:    LLMProviderNone,
			Timeout:     "2m",
			Temperature: 0.7,
			MaxTokens:   4096,
			OllamaURL:   "http://localhost:11434",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env -> CLI flags.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints and the scheduler cron expression.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := ValidateCronSchedule(c.Scheduler.Cron); err != nil {
		return fmt.Errorf("invalid scheduler.cron: %w", err)
	}

	for name, value := range map[string]string{
		"holdings.timeout":        c.Holdings.Timeout,
		"market.timeout":          c.Market.Timeout,
		"analysis.earnings_cache": c.Analysis.EarningsCache,
		"analysis.news_cache":     c.Analysis.NewsCache,
		"llm.timeout":             c.LLM.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Server configuration
	if port := os.Getenv("FOLIO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FOLIO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("FOLIO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Holdings configuration
	if endpoint := os.Getenv("FOLIO_HOLDINGS_ENDPOINT_URL"); endpoint != "" {
		config.Holdings.EndpointURL = endpoint
	}
	if token := os.Getenv("FOLIO_HOLDINGS_AUTH_TOKEN"); token != "" {
		config.Holdings.AuthToken = token
	}
	if timeout := os.Getenv("FOLIO_HOLDINGS_TIMEOUT"); timeout != "" {
		config.Holdings.Timeout = timeout
	}

	// Market configuration
	if baseURL := os.Getenv("FOLIO_MARKET_BASE_URL"); baseURL != "" {
		config.Market.BaseURL = baseURL
	}
	if rateLimit := os.Getenv("FOLIO_MARKET_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.Market.RateLimit = rl
		}
	}

	// Analysis configuration
	if threshold := os.Getenv("FOLIO_ANALYSIS_FLUCTUATION_THRESHOLD"); threshold != "" {
		if t, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Analysis.FluctuationThreshold = t
		}
	}
	if workers := os.Getenv("FOLIO_ANALYSIS_QUOTE_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Analysis.QuoteWorkers = w
		}
	}
	if workers := os.Getenv("FOLIO_ANALYSIS_COLLECTOR_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Analysis.CollectorWorkers = w
		}
	}
	if ttl := os.Getenv("FOLIO_ANALYSIS_EARNINGS_CACHE"); ttl != "" {
		config.Analysis.EarningsCache = ttl
	}
	if ttl := os.Getenv("FOLIO_ANALYSIS_NEWS_CACHE"); ttl != "" {
		config.Analysis.NewsCache = ttl
	}

	// Scheduler configuration
	if enabled := os.Getenv("FOLIO_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if cronExpr := os.Getenv("FOLIO_SCHEDULER_CRON"); cronExpr != "" {
		config.Scheduler.Cron = cronExpr
	}

	// LLM configuration
	if provider := os.Getenv("FOLIO_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = LLMProvider(provider)
	}
	if model := os.Getenv("FOLIO_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.LLM.AnthropicAPIKey = apiKey
	}
	if apiKey := os.Getenv("FOLIO_LLM_ANTHROPIC_API_KEY"); apiKey != "" {
		config.LLM.AnthropicAPIKey = apiKey // FOLIO_ prefix takes priority
	}
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		config.LLM.GoogleAPIKey = apiKey
	}
	if apiKey := os.Getenv("FOLIO_LLM_GOOGLE_API_KEY"); apiKey != "" {
		config.LLM.GoogleAPIKey = apiKey
	}
	if ollamaURL := os.Getenv("FOLIO_LLM_OLLAMA_URL"); ollamaURL != "" {
		config.LLM.OllamaURL = ollamaURL
	}
	if timeout := os.Getenv("FOLIO_LLM_TIMEOUT"); timeout != "" {
		config.LLM.Timeout = timeout
	}
	if temperature := os.Getenv("FOLIO_LLM_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.LLM.Temperature = float32(t)
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ValidateCronSchedule validates a standard 5-field cron expression.
func ValidateCronSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return fmt.Errorf("cron expression is empty")
	}

	parts := strings.Fields(schedule)
	if len(parts) != 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields, got %d", len(parts))
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

// HoldingsTimeout returns the parsed holdings endpoint timeout.
func (c *Config) HoldingsTimeout() time.Duration {
	d, err := time.ParseDuration(c.Holdings.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// MarketTimeout returns the parsed market client timeout.
func (c *Config) MarketTimeout() time.Duration {
	d, err := time.ParseDuration(c.Market.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// EarningsCacheTTL returns the parsed earnings cache TTL.
func (c *Config) EarningsCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Analysis.EarningsCache)
	if err != nil {
		return 4 * time.Hour
	}
	return d
}

// NewsCacheTTL returns the parsed news cache TTL.
func (c *Config) NewsCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Analysis.NewsCache)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

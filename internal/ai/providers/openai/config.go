package openai

import (
	"time"

	"github.com/yildizm/studyrag/internal/ai"
)

// Config holds configuration for the OpenAI-compatible provider. Any server
// speaking the OpenAI API works here (OpenAI itself, LM Studio, vLLM, ...).
type Config struct {
	// APIKey for authentication
	APIKey string `json:"api_key"`

	// BaseURL is the API endpoint; empty means api.openai.com
	BaseURL string `json:"base_url,omitempty"`

	// Model is the chat model to use
	Model string `json:"model"`

	// EmbedModel is the embedding model to use
	EmbedModel string `json:"embed_model"`

	// EmbedDimensions overrides the embedding dimensionality for models not
	// in the known-model table
	EmbedDimensions int `json:"embed_dimensions,omitempty"`

	// MaxBatchSize caps texts per embeddings request; larger input lists
	// are split transparently
	MaxBatchSize int `json:"max_batch_size"`

	// Timeout for individual requests
	Timeout time.Duration `json:"timeout"`

	// MaxTokens is the maximum context window size
	MaxTokens int `json:"max_tokens"`

	// Temperature is the default sampling temperature
	Temperature float64 `json:"temperature"`

	// MaxRetries bounds retries of transient failures
	MaxRetries int `json:"max_retries"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Model:        "gpt-4o-mini",
		EmbedModel:   "text-embedding-3-small",
		MaxBatchSize: 64,
		Timeout:      30 * time.Second,
		MaxTokens:    8192,
		Temperature:  0.2,
		MaxRetries:   3,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ai.NewConfigurationError("openai", "api_key", "API key is required")
	}
	if c.Model == "" {
		return ai.NewConfigurationError("openai", "model", "chat model is required")
	}
	if c.EmbedModel == "" {
		return ai.NewConfigurationError("openai", "embed_model", "embedding model is required")
	}
	if c.MaxBatchSize <= 0 {
		return ai.NewConfigurationError("openai", "max_batch_size", "batch size must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return ai.NewConfigurationError("openai", "temperature", "temperature must be between 0 and 1")
	}
	return nil
}

// fromSettings builds a Config from generic provider settings.
func fromSettings(s *ai.Settings) *Config {
	config := DefaultConfig()
	if s == nil {
		return config
	}
	if s.APIKey != "" {
		config.APIKey = s.APIKey
	}
	if s.Endpoint != "" {
		config.BaseURL = s.Endpoint
	}
	if s.Model != "" {
		config.Model = s.Model
	}
	if s.EmbedModel != "" {
		config.EmbedModel = s.EmbedModel
	}
	if s.EmbedDimensions > 0 {
		config.EmbedDimensions = s.EmbedDimensions
	}
	if s.MaxBatchSize > 0 {
		config.MaxBatchSize = s.MaxBatchSize
	}
	if s.Timeout > 0 {
		config.Timeout = s.Timeout
	}
	if s.MaxTokens > 0 {
		config.MaxTokens = s.MaxTokens
	}
	if s.Temperature > 0 {
		config.Temperature = s.Temperature
	}
	if s.MaxRetries > 0 {
		config.MaxRetries = s.MaxRetries
	}
	return config
}

// Register registers the OpenAI provider with the global registry.
func Register() error {
	return ai.RegisterProvider("openai", func(settings *ai.Settings) (ai.Provider, error) {
		return New(fromSettings(settings))
	})
}

// knownEmbedDimensions maps common OpenAI embedding models to their output
// dimensionality.
var knownEmbedDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

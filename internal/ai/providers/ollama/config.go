package ollama

import (
	"time"

	"github.com/yildizm/studyrag/internal/ai"
)

// Config holds Ollama-specific configuration
type Config struct {
	// BaseURL is the Ollama API endpoint
	BaseURL string `json:"base_url"`

	// Model is the generation model to use
	Model string `json:"model"`

	// EmbedModel is the embedding model to use
	EmbedModel string `json:"embed_model"`

	// EmbedDimensions overrides the embedding dimensionality for models not
	// in the known-model table
	EmbedDimensions int `json:"embed_dimensions,omitempty"`

	// Timeout for HTTP requests
	Timeout time.Duration `json:"timeout"`

	// MaxTokens is the maximum context window size
	MaxTokens int `json:"max_tokens"`

	// Temperature is the default sampling temperature
	Temperature float64 `json:"temperature"`

	// MaxRetries bounds retries of transient failures
	MaxRetries int `json:"max_retries"`
}

// DefaultConfig returns a default Ollama configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "http://localhost:11434",
		Model:       "llama3.2",
		EmbedModel:  "nomic-embed-text",
		Timeout:     60 * time.Second,
		MaxTokens:   4096,
		Temperature: 0.2,
		MaxRetries:  3,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ai.NewConfigurationError("ollama", "base_url", "base URL is required")
	}
	if c.Model == "" {
		return ai.NewConfigurationError("ollama", "model", "generation model is required")
	}
	if c.EmbedModel == "" {
		return ai.NewConfigurationError("ollama", "embed_model", "embedding model is required")
	}
	if c.Timeout <= 0 {
		return ai.NewConfigurationError("ollama", "timeout", "timeout must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return ai.NewConfigurationError("ollama", "temperature", "temperature must be between 0 and 1")
	}
	return nil
}

// fromSettings builds a Config from generic provider settings.
func fromSettings(s *ai.Settings) *Config {
	config := DefaultConfig()
	if s == nil {
		return config
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

// Register registers the Ollama provider with the global registry.
func Register() error {
	return ai.RegisterProvider("ollama", func(settings *ai.Settings) (ai.Provider, error) {
		return New(fromSettings(settings))
	})
}

// knownEmbedDimensions maps common Ollama embedding models to their output
// dimensionality.
var knownEmbedDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,
}

package ai

import (
	"time"
)

// CompletionRequest represents a request for text completion
type CompletionRequest struct {
	// Prompt is the input text for completion
	Prompt string `json:"prompt"`

	// SystemPrompt provides system-level instructions
	SystemPrompt string `json:"system_prompt,omitempty"`

	// MaxTokens limits the response length
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 1.0)
	Temperature float64 `json:"temperature,omitempty"`

	// Model overrides the provider's default model
	Model string `json:"model,omitempty"`

	// RequestID for request tracking
	RequestID string `json:"request_id,omitempty"`
}

// CompletionResponse represents the response from a completion request
type CompletionResponse struct {
	// Content is the generated text
	Content string `json:"content"`

	// FinishReason indicates why the completion finished
	FinishReason string `json:"finish_reason"`

	// Usage contains token usage information
	Usage *TokenUsage `json:"usage,omitempty"`

	// Model indicates which model was used
	Model string `json:"model"`

	// RequestID matches the original request
	RequestID string `json:"request_id,omitempty"`

	// CreatedAt timestamp
	CreatedAt time.Time `json:"created_at"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Settings contains provider configuration shared by all provider types.
type Settings struct {
	// Endpoint is the API base URL
	Endpoint string `json:"endpoint"`

	// APIKey for authentication (unused by local providers)
	APIKey string `json:"api_key,omitempty"`

	// Model is the chat/generation model identifier
	Model string `json:"model"`

	// EmbedModel is the embedding model identifier
	EmbedModel string `json:"embed_model"`

	// EmbedDimensions overrides the embedding dimensionality when the model
	// is not in the provider's known-model table
	EmbedDimensions int `json:"embed_dimensions,omitempty"`

	// MaxBatchSize caps the number of texts per embedding request
	MaxBatchSize int `json:"max_batch_size,omitempty"`

	// Timeout for individual requests
	Timeout time.Duration `json:"timeout,omitempty"`

	// MaxRetries bounds the retry budget for transient failures
	MaxRetries int `json:"max_retries,omitempty"`

	// MaxTokens is the maximum context window
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature is the default sampling temperature
	Temperature float64 `json:"temperature,omitempty"`
}

package ai

import (
	"context"
)

// EmbeddingProvider maps texts to fixed-length numeric vectors.
type EmbeddingProvider interface {
	// Name returns the provider name (e.g., "openai", "ollama")
	Name() string

	// Embed returns one vector per input text, in input order. Providers
	// split oversized input lists into batches transparently; callers never
	// see provider batch limits.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the declared output dimensionality. A provider may
	// return 0 until the first successful Embed call if the model's
	// dimensionality is not known up front.
	Dimension() int

	// EmbeddingModelID identifies the pinned embedding model/version. It is
	// recorded alongside stored vectors so a provider swap is detected
	// instead of silently corrupting similarity scores.
	EmbeddingModelID() string
}

// CompletionProvider generates text from a prompt.
type CompletionProvider interface {
	// Name returns the provider name
	Name() string

	// Complete performs text completion
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// MaxTokens returns the maximum context window size
	MaxTokens() int

	// ValidateConfig validates the provider configuration
	ValidateConfig() error

	// Close cleans up provider resources
	Close() error
}

// Provider combines the embedding and completion capabilities. Both built-in
// providers implement it; the pipeline itself only depends on the two narrow
// interfaces above.
type Provider interface {
	EmbeddingProvider
	CompletionProvider
}

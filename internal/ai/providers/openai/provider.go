package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/yildizm/studyrag/internal/ai"
)

// Provider implements ai.Provider against the OpenAI API.
type Provider struct {
	config *Config
	client *goopenai.Client
	policy ai.RetryPolicy

	dimMu     sync.Mutex
	dimension int
}

// New creates a new OpenAI provider with the given configuration.
func New(config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientConfig := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	policy := ai.DefaultRetryPolicy()
	if config.MaxRetries > 0 {
		policy.MaxAttempts = config.MaxRetries
	}

	dimension := config.EmbedDimensions
	if dimension == 0 {
		dimension = knownEmbedDimensions[config.EmbedModel]
	}

	return &Provider{
		config:    config,
		client:    goopenai.NewClientWithConfig(clientConfig),
		policy:    policy,
		dimension: dimension,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// EmbeddingModelID identifies the pinned embedding model
func (p *Provider) EmbeddingModelID() string {
	return "openai/" + p.config.EmbedModel
}

// Dimension returns the embedding dimensionality, or 0 if it has not been
// configured or observed yet.
func (p *Provider) Dimension() int {
	p.dimMu.Lock()
	defer p.dimMu.Unlock()
	return p.dimension
}

func (p *Provider) observeDimension(d int) {
	p.dimMu.Lock()
	defer p.dimMu.Unlock()
	if p.dimension == 0 {
		p.dimension = d
	}
}

// MaxTokens returns the maximum context window size.
func (p *Provider) MaxTokens() int {
	return p.config.MaxTokens
}

// ValidateConfig checks whether the provider is properly configured.
func (p *Provider) ValidateConfig() error {
	return p.config.Validate()
}

// Close releases provider resources.
func (p *Provider) Close() error {
	return nil
}

// Embed returns one embedding vector per input text, in input order. The
// inputs are split into batches of at most MaxBatchSize texts; each batch is
// retried independently. On exhaustion the error reports the offset of the
// first text in the failing batch.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.config.MaxBatchSize {
		end := start + p.config.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var batchVectors [][]float32
		attempts, err := ai.Retry(ctx, p.policy, func(ctx context.Context) error {
			var embedErr error
			batchVectors, embedErr = p.embedBatch(ctx, batch)
			return embedErr
		})
		if err != nil {
			return nil, &ai.EmbeddingFailure{
				Provider: p.Name(),
				Offset:   start,
				Attempts: attempts,
				Cause:    err,
			}
		}
		vectors = append(vectors, batchVectors...)
	}

	if len(vectors) > 0 && len(vectors[0]) > 0 {
		p.observeDimension(len(vectors[0]))
	}
	return vectors, nil
}

func (p *Provider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx := ctx
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	resp, err := p.client.CreateEmbeddings(reqCtx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(p.config.EmbedModel),
		Input: texts,
	})
	if err != nil {
		return nil, p.classifyError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, ai.NewProviderError(ai.ErrTypeProvider,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)), "openai")
	}

	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, ai.NewProviderError(ai.ErrTypeProvider,
				fmt.Sprintf("embedding index %d out of range", item.Index), "openai")
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// Complete generates a chat completion for the given request.
func (p *Provider) Complete(ctx context.Context, req *ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if req == nil || req.Prompt == "" {
		return nil, ai.NewProviderError(ai.ErrTypeValidation, "prompt is required", "openai")
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.config.Temperature
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(temperature),
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	var resp goopenai.ChatCompletionResponse
	attempts, err := ai.Retry(ctx, p.policy, func(ctx context.Context) error {
		reqCtx := ctx
		if p.config.Timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, p.config.Timeout)
			defer cancel()
		}
		var chatErr error
		resp, chatErr = p.client.CreateChatCompletion(reqCtx, chatReq)
		if chatErr != nil {
			return p.classifyError(chatErr)
		}
		if len(resp.Choices) == 0 {
			return ai.NewProviderError(ai.ErrTypeProvider, "response contains no choices", "openai")
		}
		return nil
	})
	if err != nil {
		return nil, &ai.GenerationFailure{
			Provider: p.Name(),
			Attempts: attempts,
			Cause:    err,
		}
	}

	choice := resp.Choices[0]
	return &ai.CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: &ai.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model:     resp.Model,
		RequestID: req.RequestID,
		CreatedAt: time.Now(),
	}, nil
}

// classifyError maps client errors onto the shared error taxonomy so the
// retry layer can tell transient failures from permanent ones.
func (p *Provider) classifyError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		pe := classifyAPIError(apiErr, err)
		pe.StatusCode = apiErr.HTTPStatusCode
		return pe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ai.NewProviderErrorWithCause(ai.ErrTypeTimeout, "request timed out", "openai", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "network error", "openai", err)
	}
	return ai.NewProviderErrorWithCause(ai.ErrTypeProvider, "request failed", "openai", err)
}

func classifyAPIError(apiErr *goopenai.APIError, cause error) *ai.ProviderError {
	switch {
	case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
		return ai.NewProviderErrorWithCause(ai.ErrTypeAuthentication, "authentication failed", "openai", cause)
	case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
		return ai.NewProviderErrorWithCause(ai.ErrTypeRateLimit, "rate limit exceeded", "openai", cause)
	case apiErr.HTTPStatusCode == http.StatusNotFound:
		return ai.NewProviderErrorWithCause(ai.ErrTypeConfiguration,
			fmt.Sprintf("model not found: %s", apiErr.Message), "openai", cause)
	case apiErr.HTTPStatusCode >= 500:
		return ai.NewProviderErrorWithCause(ai.ErrTypeNetwork,
			fmt.Sprintf("server error (HTTP %d)", apiErr.HTTPStatusCode), "openai", cause)
	default:
		return ai.NewProviderErrorWithCause(ai.ErrTypeProvider, apiErr.Message, "openai", cause)
	}
}

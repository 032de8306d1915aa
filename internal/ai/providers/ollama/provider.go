package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yildizm/studyrag/internal/ai"
)

// Provider implements ai.Provider against a local Ollama server.
type Provider struct {
	config  *Config
	client  *http.Client
	baseURL *url.URL
	policy  ai.RetryPolicy

	// dimension is set from the known-model table or the config override,
	// or lazily from the first successful embedding.
	dimMu     sync.RWMutex
	dimension int
}

// New creates a new Ollama provider instance
func New(config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, ai.NewConfigurationError("ollama", "base_url", "invalid base URL: "+err.Error())
	}

	policy := ai.DefaultRetryPolicy()
	if config.MaxRetries > 0 {
		policy.MaxAttempts = config.MaxRetries
	}

	dim := config.EmbedDimensions
	if dim == 0 {
		dim = knownEmbedDimensions[config.EmbedModel]
	}

	return &Provider{
		config:    config,
		client:    &http.Client{Timeout: config.Timeout},
		baseURL:   baseURL,
		policy:    policy,
		dimension: dim,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "ollama"
}

// EmbeddingModelID identifies the pinned embedding model
func (p *Provider) EmbeddingModelID() string {
	return "ollama/" + p.config.EmbedModel
}

// Dimension returns the embedding dimensionality, or 0 if not yet known
func (p *Provider) Dimension() int {
	p.dimMu.RLock()
	defer p.dimMu.RUnlock()
	return p.dimension
}

// Embed generates one vector per input text. The Ollama embeddings endpoint
// takes a single prompt per call, so the batch is issued as sequential
// requests, each with its own retry budget.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		var vec []float32
		attempts, err := ai.Retry(ctx, p.policy, func(ctx context.Context) error {
			var embedErr error
			vec, embedErr = p.embedOne(ctx, text)
			return embedErr
		})
		if err != nil {
			return nil, &ai.EmbeddingFailure{
				Provider: "ollama",
				Offset:   i,
				Attempts: attempts,
				Cause:    err,
			}
		}
		p.observeDimension(len(vec))
		vectors[i] = vec
	}
	return vectors, nil
}

// Complete performs text completion
func (p *Provider) Complete(ctx context.Context, req *ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if req == nil {
		return nil, ai.NewProviderError(ai.ErrTypeValidation, "completion request is required", "ollama")
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.config.Temperature
	}

	ollamaReq := &GenerateRequest{
		Model:   model,
		Prompt:  req.Prompt,
		System:  req.SystemPrompt,
		Stream:  false,
		Options: &Options{Temperature: temperature, NumPredict: req.MaxTokens},
	}

	startTime := time.Now()
	var resp *GenerateResponse
	attempts, err := ai.Retry(ctx, p.policy, func(ctx context.Context) error {
		var genErr error
		resp, genErr = p.generate(ctx, ollamaReq)
		return genErr
	})
	if err != nil {
		return nil, &ai.GenerationFailure{Provider: "ollama", Attempts: attempts, Cause: err}
	}

	return &ai.CompletionResponse{
		Content:      strings.TrimSpace(resp.Response),
		FinishReason: "stop",
		Usage: &ai.TokenUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
		Model:     resp.Model,
		RequestID: req.RequestID,
		CreatedAt: startTime,
	}, nil
}

// MaxTokens returns the maximum context window size
func (p *Provider) MaxTokens() int {
	return p.config.MaxTokens
}

// ValidateConfig validates the provider configuration
func (p *Provider) ValidateConfig() error {
	return p.config.Validate()
}

// Close cleans up provider resources
func (p *Provider) Close() error {
	return nil
}

func (p *Provider) observeDimension(n int) {
	p.dimMu.Lock()
	if p.dimension == 0 {
		p.dimension = n
	}
	p.dimMu.Unlock()
}

func (p *Provider) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(&EmbeddingRequest{Model: p.config.EmbedModel, Prompt: text})
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to marshal embedding request", "ollama", err)
	}

	respBody, err := p.post(ctx, "/api/embeddings", body)
	if err != nil {
		return nil, err
	}

	var embedResp EmbeddingResponse
	if err := json.Unmarshal(respBody, &embedResp); err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode embedding response", "ollama", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, ai.NewProviderError(ai.ErrTypeProvider, "empty embedding returned", "ollama")
	}
	return embedResp.Embedding, nil
}

func (p *Provider) generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to marshal generate request", "ollama", err)
	}

	respBody, err := p.post(ctx, "/api/generate", body)
	if err != nil {
		return nil, err
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode generate response", "ollama", err)
	}
	return &genResp, nil
}

func (p *Provider) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	endpoint := p.baseURL.JoinPath(path)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "failed to create request", "ollama", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ai.NewProviderErrorWithCause(ai.ErrTypeTimeout, "request timed out", "ollama", err)
		}
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "request failed", "ollama", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "failed to read response", "ollama", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.statusError(resp.StatusCode, buf.Bytes())
	}
	return buf.Bytes(), nil
}

func (p *Provider) statusError(status int, body []byte) error {
	message := fmt.Sprintf("request failed with status %d", status)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}

	switch {
	case status == http.StatusTooManyRequests:
		pe := ai.NewProviderError(ai.ErrTypeRateLimit, message, "ollama")
		pe.StatusCode = status
		return pe
	case status >= 500:
		pe := ai.NewProviderError(ai.ErrTypeNetwork, message, "ollama")
		pe.StatusCode = status
		return pe
	case status == http.StatusNotFound:
		pe := ai.NewProviderError(ai.ErrTypeConfiguration, message, "ollama")
		pe.StatusCode = status
		return pe
	default:
		pe := ai.NewProviderError(ai.ErrTypeProvider, message, "ollama")
		pe.StatusCode = status
		return pe
	}
}

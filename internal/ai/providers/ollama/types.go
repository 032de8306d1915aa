package ollama

// GenerateRequest is the Ollama /api/generate request body
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

// Options holds Ollama generation options
type Options struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// GenerateResponse is the Ollama /api/generate response body
type GenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// EmbeddingRequest is the Ollama /api/embeddings request body
type EmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// EmbeddingResponse is the Ollama /api/embeddings response body
type EmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// ErrorResponse is the Ollama error response body
type ErrorResponse struct {
	Error string `json:"error"`
}

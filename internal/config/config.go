package config

import (
	"fmt"
	"time"
)

// Config is the full application configuration.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider" json:"provider"`
	Chunking  ChunkingConfig  `yaml:"chunking" json:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval" json:"retrieval"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Output    OutputConfig    `yaml:"output" json:"output"`
}

// ProviderConfig selects and tunes the AI provider.
type ProviderConfig struct {
	// Name picks the provider: "ollama" or "openai"
	Name string `yaml:"name" json:"name"`

	// Endpoint overrides the provider base URL
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// APIKey authenticates against hosted providers
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// Model is the chat model
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// EmbedModel is the embedding model
	EmbedModel string `yaml:"embed_model,omitempty" json:"embed_model,omitempty"`

	// EmbedDimensions overrides embedding dimensionality detection
	EmbedDimensions int `yaml:"embed_dimensions,omitempty" json:"embed_dimensions,omitempty"`

	// Timeout bounds individual provider requests
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// MaxRetries bounds retries of transient provider failures
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`

	// Temperature is the sampling temperature for generation
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
}

// ChunkingConfig controls document splitting.
type ChunkingConfig struct {
	Size    int `yaml:"size" json:"size"`
	Overlap int `yaml:"overlap" json:"overlap"`
}

// RetrievalConfig controls context retrieval.
type RetrievalConfig struct {
	TopKDocuments   int     `yaml:"top_k_documents" json:"top_k_documents"`
	TopKFacts       int     `yaml:"top_k_facts" json:"top_k_facts"`
	MinScore        float64 `yaml:"min_score" json:"min_score"`
	MaxContextChars int     `yaml:"max_context_chars" json:"max_context_chars"`
	HistoryTurns    int     `yaml:"history_turns" json:"history_turns"`
}

// StorageConfig controls where data lives on disk.
type StorageConfig struct {
	// DataDir is the base directory for all persistent state
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// IndexFile is the SQLite database file name inside DataDir
	IndexFile string `yaml:"index_file" json:"index_file"`

	// HistoryDir is the session transcript directory inside DataDir
	HistoryDir string `yaml:"history_dir" json:"history_dir"`
}

// OutputConfig controls terminal rendering.
type OutputConfig struct {
	NoColor bool `yaml:"no_color" json:"no_color"`
	NoEmoji bool `yaml:"no_emoji" json:"no_emoji"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:       "ollama",
			Model:      "llama3.2",
			EmbedModel: "nomic-embed-text",
			Timeout:    60 * time.Second,
			MaxRetries: 3,
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopKDocuments:   5,
			TopKFacts:       3,
			MinScore:        0.2,
			MaxContextChars: 8000,
			HistoryTurns:    6,
		},
		Storage: StorageConfig{
			DataDir:    ".studyrag",
			IndexFile:  "studyrag.db",
			HistoryDir: "sessions",
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Provider.Name == "" {
		return fmt.Errorf("provider.name is required")
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive")
	}
	if c.Chunking.Overlap <= 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be positive and smaller than chunking.size")
	}
	if c.Retrieval.TopKDocuments <= 0 {
		return fmt.Errorf("retrieval.top_k_documents must be positive")
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		return fmt.Errorf("retrieval.min_score must be between 0 and 1")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	return nil
}

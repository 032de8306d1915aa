package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing provider", func(c *Config) { c.Provider.Name = "" }},
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }},
		{"overlap too large", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"zero top-k", func(c *Config) { c.Retrieval.TopKDocuments = 0 }},
		{"score out of range", func(c *Config) { c.Retrieval.MinScore = 1.5 }},
		{"missing data dir", func(c *Config) { c.Storage.DataDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfigFromCustomPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `provider:
  name: openai
  model: gpt-4o-mini
  timeout: 45s
chunking:
  size: 500
  overlap: 100
retrieval:
  top_k_documents: 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewLoader().LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.Name != "openai" || cfg.Provider.Model != "gpt-4o-mini" {
		t.Errorf("provider not loaded: %+v", cfg.Provider)
	}
	if cfg.Provider.Timeout != 45*time.Second {
		t.Errorf("timeout not parsed: %v", cfg.Provider.Timeout)
	}
	if cfg.Chunking.Size != 500 || cfg.Chunking.Overlap != 100 {
		t.Errorf("chunking not loaded: %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopKDocuments != 7 {
		t.Errorf("retrieval not loaded: %+v", cfg.Retrieval)
	}
	// unset fields keep defaults
	if cfg.Provider.EmbedModel != "nomic-embed-text" {
		t.Errorf("default embed model lost: %q", cfg.Provider.EmbedModel)
	}
}

func TestLoadConfigRejectsBadPaths(t *testing.T) {
	loader := NewLoader()
	if _, err := loader.LoadConfig("../../etc/config.yaml"); err == nil {
		t.Error("expected error for path traversal")
	}
	if _, err := loader.LoadConfig("config.txt"); err == nil {
		t.Error("expected error for non-yaml extension")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STUDYRAG_PROVIDER", "openai")
	t.Setenv("STUDYRAG_CHUNK_SIZE", "800")
	t.Setenv("STUDYRAG_MIN_SCORE", "0.35")
	t.Setenv("STUDYRAG_NO_COLOR", "true")
	t.Setenv("STUDYRAG_TIMEOUT", "90s")

	cfg, err := NewLoader().LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.Name != "openai" {
		t.Errorf("provider override ignored: %q", cfg.Provider.Name)
	}
	if cfg.Chunking.Size != 800 {
		t.Errorf("chunk size override ignored: %d", cfg.Chunking.Size)
	}
	if cfg.Retrieval.MinScore != 0.35 {
		t.Errorf("min score override ignored: %v", cfg.Retrieval.MinScore)
	}
	if !cfg.Output.NoColor {
		t.Error("no-color override ignored")
	}
	if cfg.Provider.Timeout != 90*time.Second {
		t.Errorf("timeout override ignored: %v", cfg.Provider.Timeout)
	}
}

func TestEnvOverrideInvalidValue(t *testing.T) {
	t.Setenv("STUDYRAG_CHUNK_SIZE", "many")
	if _, err := NewLoader().LoadConfig(""); err == nil {
		t.Error("expected error for unparsable env value")
	}
}

func TestAPIKeyFallback(t *testing.T) {
	t.Setenv("STUDYRAG_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	cfg, err := NewLoader().LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.APIKey != "sk-fallback" {
		t.Errorf("expected OPENAI_API_KEY fallback, got %q", cfg.Provider.APIKey)
	}

	t.Setenv("STUDYRAG_API_KEY", "sk-primary")
	cfg, err = NewLoader().LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.APIKey != "sk-primary" {
		t.Errorf("app-specific key should win, got %q", cfg.Provider.APIKey)
	}
}

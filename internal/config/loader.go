package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.studyrag.yaml",               // Project-specific config (highest priority)
	"~/.config/studyrag/config.yaml", // User config
	"/etc/studyrag/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables
// 3. ./.studyrag.yaml
// 4. ~/.config/studyrag/config.yaml
// 5. /etc/studyrag/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// load lowest priority first so later files win
		paths := make([]string, len(l.configPaths))
		copy(paths, l.configPaths)
		for i := len(paths)/2 - 1; i >= 0; i-- {
			opp := len(paths) - 1 - i
			paths[i], paths[opp] = paths[opp], paths[i]
		}

		for _, path := range paths {
			expandedPath := expandPath(path)
			if fileExists(expandedPath) {
				if err := l.loadFromFile(config, expandedPath); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
				}
			}
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads a YAML file and merges it over the existing config
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() before reaching here
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfigs(config, &fileConfig)
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Provider
		"STUDYRAG_PROVIDER":         func(v string) error { config.Provider.Name = v; return nil },
		"STUDYRAG_ENDPOINT":         func(v string) error { config.Provider.Endpoint = v; return nil },
		"STUDYRAG_API_KEY":          func(v string) error { config.Provider.APIKey = v; return nil },
		"STUDYRAG_MODEL":            func(v string) error { config.Provider.Model = v; return nil },
		"STUDYRAG_EMBED_MODEL":      func(v string) error { config.Provider.EmbedModel = v; return nil },
		"STUDYRAG_EMBED_DIMENSIONS": func(v string) error { return parseInt(v, &config.Provider.EmbedDimensions) },
		"STUDYRAG_TIMEOUT":          func(v string) error { return parseDuration(v, &config.Provider.Timeout) },
		"STUDYRAG_MAX_RETRIES":      func(v string) error { return parseInt(v, &config.Provider.MaxRetries) },

		// Chunking
		"STUDYRAG_CHUNK_SIZE":    func(v string) error { return parseInt(v, &config.Chunking.Size) },
		"STUDYRAG_CHUNK_OVERLAP": func(v string) error { return parseInt(v, &config.Chunking.Overlap) },

		// Retrieval
		"STUDYRAG_TOP_K_DOCUMENTS": func(v string) error { return parseInt(v, &config.Retrieval.TopKDocuments) },
		"STUDYRAG_TOP_K_FACTS":     func(v string) error { return parseInt(v, &config.Retrieval.TopKFacts) },
		"STUDYRAG_MIN_SCORE":       func(v string) error { return parseFloat(v, &config.Retrieval.MinScore) },
		"STUDYRAG_HISTORY_TURNS":   func(v string) error { return parseInt(v, &config.Retrieval.HistoryTurns) },

		// Storage
		"STUDYRAG_DATA_DIR":    func(v string) error { config.Storage.DataDir = v; return nil },
		"STUDYRAG_INDEX_FILE":  func(v string) error { config.Storage.IndexFile = v; return nil },
		"STUDYRAG_HISTORY_DIR": func(v string) error { config.Storage.HistoryDir = v; return nil },

		// Output
		"STUDYRAG_NO_COLOR": func(v string) error { return parseBool(v, &config.Output.NoColor) },
		"STUDYRAG_NO_EMOJI": func(v string) error { return parseBool(v, &config.Output.NoEmoji) },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	// the conventional variable wins only when the app-specific one is unset
	if config.Provider.APIKey == "" {
		config.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/proc/") || strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mergeConfigs merges source config into destination config.
// Only non-zero values from source overwrite destination.
func mergeConfigs(dst, src *Config) {
	mergeProviderConfig(&dst.Provider, &src.Provider)
	mergeChunkingConfig(&dst.Chunking, &src.Chunking)
	mergeRetrievalConfig(&dst.Retrieval, &src.Retrieval)
	mergeStorageConfig(&dst.Storage, &src.Storage)

	if src.Output.NoColor {
		dst.Output.NoColor = true
	}
	if src.Output.NoEmoji {
		dst.Output.NoEmoji = true
	}
}

func mergeProviderConfig(dst, src *ProviderConfig) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.EmbedModel != "" {
		dst.EmbedModel = src.EmbedModel
	}
	if src.EmbedDimensions != 0 {
		dst.EmbedDimensions = src.EmbedDimensions
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
	if src.MaxRetries != 0 {
		dst.MaxRetries = src.MaxRetries
	}
	if src.Temperature != 0 {
		dst.Temperature = src.Temperature
	}
}

func mergeChunkingConfig(dst, src *ChunkingConfig) {
	if src.Size != 0 {
		dst.Size = src.Size
	}
	if src.Overlap != 0 {
		dst.Overlap = src.Overlap
	}
}

func mergeRetrievalConfig(dst, src *RetrievalConfig) {
	if src.TopKDocuments != 0 {
		dst.TopKDocuments = src.TopKDocuments
	}
	if src.TopKFacts != 0 {
		dst.TopKFacts = src.TopKFacts
	}
	if src.MinScore != 0 {
		dst.MinScore = src.MinScore
	}
	if src.MaxContextChars != 0 {
		dst.MaxContextChars = src.MaxContextChars
	}
	if src.HistoryTurns != 0 {
		dst.HistoryTurns = src.HistoryTurns
	}
}

func mergeStorageConfig(dst, src *StorageConfig) {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.IndexFile != "" {
		dst.IndexFile = src.IndexFile
	}
	if src.HistoryDir != "" {
		dst.HistoryDir = src.HistoryDir
	}
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseFloat(s string, dst *float64) error {
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

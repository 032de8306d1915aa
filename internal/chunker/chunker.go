package chunker

import (
	"fmt"
	"strings"
	"unicode"
)

// ConfigError reports an invalid chunking configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("chunker config [%s]: %s", e.Field, e.Message)
}

// Options controls how text is split.
type Options struct {
	// ChunkSize is the maximum chunk length in runes
	ChunkSize int

	// Overlap is the number of trailing runes each chunk shares with the
	// next chunk
	Overlap int
}

// DefaultOptions returns the default chunking configuration.
func DefaultOptions() Options {
	return Options{
		ChunkSize: 1000,
		Overlap:   200,
	}
}

// Validate checks the chunking configuration.
func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return &ConfigError{Field: "chunk_size", Message: "must be positive"}
	}
	if o.Overlap <= 0 {
		return &ConfigError{Field: "overlap", Message: "must be positive"}
	}
	if o.Overlap >= o.ChunkSize {
		return &ConfigError{Field: "overlap", Message: "must be smaller than chunk size"}
	}
	return nil
}

// Split cuts text into overlapping chunks. Each chunk is at most ChunkSize
// runes long, and every chunk after the first starts with the last Overlap
// runes of its predecessor, so no content is lost at chunk boundaries.
// Cuts prefer whitespace near the chunk end to avoid splitting words.
// Empty or whitespace-only input yields no chunks.
func Split(text string, opts Options) ([]string, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	if len(runes) <= opts.ChunkSize {
		return []string{text}, nil
	}

	// How far back from the hard cut we may move to land on whitespace.
	// Bounded so the next chunk always starts after the current one.
	tolerance := opts.ChunkSize / 5
	if max := opts.ChunkSize - opts.Overlap - 1; tolerance > max {
		tolerance = max
	}

	var chunks []string
	pos := 0
	for pos < len(runes) {
		end := pos + opts.ChunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[pos:]))
			break
		}

		cut := end
		for j := end; j > end-tolerance; j-- {
			if unicode.IsSpace(runes[j-1]) {
				cut = j
				break
			}
		}

		chunks = append(chunks, string(runes[pos:cut]))
		pos = cut - opts.Overlap
	}
	return chunks, nil
}

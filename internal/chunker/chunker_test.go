package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitEmptyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split(tt.text, DefaultOptions())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(chunks) != 0 {
				t.Errorf("expected no chunks, got %d", len(chunks))
			}
		})
	}
}

func TestSplitInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero chunk size", Options{ChunkSize: 0, Overlap: 10}},
		{"negative chunk size", Options{ChunkSize: -5, Overlap: 1}},
		{"zero overlap", Options{ChunkSize: 100, Overlap: 0}},
		{"overlap equals chunk size", Options{ChunkSize: 100, Overlap: 100}},
		{"overlap exceeds chunk size", Options{ChunkSize: 100, Overlap: 150}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("some text", tt.opts)
			if err == nil {
				t.Fatal("expected config error, got nil")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected ConfigError, got %T", err)
			}
		})
	}
}

func TestSplitShortText(t *testing.T) {
	text := "a short document that fits in one chunk"
	chunks, err := Split(text, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk does not match input")
	}
}

func TestSplitChunkCount(t *testing.T) {
	// 2400 runes with no whitespace forces hard cuts at exactly
	// chunk_size, so the walk is 0..1000, 800..1800, 1600..2400.
	text := strings.Repeat("a", 2400)
	chunks, err := Split(text, Options{ChunkSize: 1000, Overlap: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 1000 || len(chunks[1]) != 1000 || len(chunks[2]) != 800 {
		t.Errorf("unexpected chunk lengths: %d, %d, %d",
			len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
}

func TestSplitMaxSize(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 200)
	opts := Options{ChunkSize: 300, Overlap: 60}
	chunks, err := Split(text, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > opts.ChunkSize {
			t.Errorf("chunk %d has %d runes, limit is %d", i, n, opts.ChunkSize)
		}
	}
}

func TestSplitOverlapProperty(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur adipiscing elit ", 100)
	opts := Options{ChunkSize: 400, Overlap: 80}
	chunks, err := Split(text, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 0; i < len(chunks)-1; i++ {
		prev := []rune(chunks[i])
		next := []rune(chunks[i+1])
		tail := string(prev[len(prev)-opts.Overlap:])
		head := string(next[:opts.Overlap])
		if tail != head {
			t.Errorf("chunks %d/%d: overlap mismatch\ntail: %q\nhead: %q", i, i+1, tail, head)
		}
	}
}

func TestSplitRoundTrip(t *testing.T) {
	text := strings.Repeat("neural networks learn representations from data ", 150)
	opts := Options{ChunkSize: 500, Overlap: 100}
	chunks, err := Split(text, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sb strings.Builder
	for i, c := range chunks {
		if i == 0 {
			sb.WriteString(c)
			continue
		}
		runes := []rune(c)
		sb.WriteString(string(runes[opts.Overlap:]))
	}
	if sb.String() != text {
		t.Error("concatenating chunks minus overlaps does not reproduce the input")
	}
}

func TestSplitPrefersWordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 500)
	chunks, err := Split(text, Options{ChunkSize: 103, Overlap: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c, " ") && !strings.HasSuffix(c, "word") {
			t.Errorf("chunk %d does not end at a word boundary: %q", i, c[len(c)-10:])
		}
	}
}

func TestSplitUnicode(t *testing.T) {
	text := strings.Repeat("日本語のテキスト ", 200)
	opts := Options{ChunkSize: 120, Overlap: 30}
	chunks, err := Split(text, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > opts.ChunkSize {
			t.Errorf("chunk %d has %d runes, limit is %d", i, n, opts.ChunkSize)
		}
	}
}

package factstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "facts.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store, err := New(context.Background(), db)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

// stubEmbedder returns a fixed vector per question so ranking is predictable.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := s.vectors[text]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		out[i] = vec
	}
	return out, nil
}

func TestSeedDedupe(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	added, err := store.Seed(ctx, BuiltinFacts())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if added != 5 {
		t.Errorf("expected 5 facts added, got %d", added)
	}

	// same set again adds nothing
	added, err = store.Seed(ctx, BuiltinFacts())
	if err != nil {
		t.Fatalf("repeat seed: %v", err)
	}
	if added != 0 {
		t.Errorf("repeat seed should add 0 facts, got %d", added)
	}

	// case and whitespace variants of an existing question are duplicates
	added, err = store.Seed(ctx, []Entry{
		{Question: "  what IS   rag? ", Answer: "different answer"},
	})
	if err != nil {
		t.Fatalf("variant seed: %v", err)
	}
	if added != 0 {
		t.Errorf("normalized duplicate should add 0 facts, got %d", added)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 facts total, got %d", count)
	}
}

func TestSeedRejectsBlankEntries(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Seed(context.Background(), []Entry{{Question: " ", Answer: "x"}}); err == nil {
		t.Error("expected error for blank question")
	}
	if _, err := store.Seed(context.Background(), []Entry{{Question: "q", Answer: ""}}); err == nil {
		t.Error("expected error for blank answer")
	}
}

func TestSearchSkipsUnembedded(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Seed(ctx, []Entry{
		{Question: "alpha", Answer: "a"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	matches, err := store.Search(ctx, []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches before embedding, got %d", len(matches))
	}
}

func TestEmbedPendingAndSearch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Seed(ctx, []Entry{
		{Question: "alpha", Answer: "about alpha"},
		{Question: "beta", Answer: "about beta"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
	}}
	if err := store.EmbedPending(ctx, embedder); err != nil {
		t.Fatalf("embed pending: %v", err)
	}
	// second call has nothing left to do
	if err := store.EmbedPending(ctx, embedder); err != nil {
		t.Fatalf("repeat embed pending: %v", err)
	}

	matches, err := store.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 || matches[0].Question != "alpha" {
		t.Fatalf("expected alpha as best match, got %+v", matches)
	}
	if matches[0].Answer != "about alpha" {
		t.Errorf("unexpected answer: %q", matches[0].Answer)
	}
}

func TestAllPreservesInsertionOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Seed(ctx, BuiltinFacts()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	entries, err := store.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	if entries[0].Question != "What is RAG?" {
		t.Errorf("unexpected first entry: %q", entries[0].Question)
	}
	for _, e := range entries {
		if e.ID == "" {
			t.Errorf("entry %q has no generated id", e.Question)
		}
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.yaml")
	content := `facts:
  - question: "What is spaced repetition?"
    answer: "Reviewing material at increasing intervals."
    category: "Study Tips"
  - question: "What is a token?"
    answer: "The unit of text a language model processes."
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	entries, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Category != "Study Tips" {
		t.Errorf("unexpected category: %q", entries[0].Category)
	}

	if _, err := LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/yildizm/studyrag/internal/ai"
	"github.com/yildizm/studyrag/internal/answer"
	"github.com/yildizm/studyrag/internal/assemble"
	"github.com/yildizm/studyrag/internal/chunker"
	"github.com/yildizm/studyrag/internal/factstore"
	"github.com/yildizm/studyrag/internal/history"
	"github.com/yildizm/studyrag/internal/vectorindex"
)

// fakeProvider embeds text deterministically by keyword counts so similarity
// is predictable, and completes by echoing a canned answer.
type fakeProvider struct {
	model      string
	embedModel string
	dimension  int
	completion string
	lastReq    *ai.CompletionRequest

	// failAt makes Embed fail when it sees this many texts or more
	failAt int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		model:      "fake-chat",
		embedModel: "fake-embed",
		dimension:  3,
		completion: "a helpful answer",
		failAt:     -1,
	}
}

func (f *fakeProvider) Name() string             { return "fake" }
func (f *fakeProvider) EmbeddingModelID() string { return f.embedModel }
func (f *fakeProvider) Dimension() int           { return f.dimension }
func (f *fakeProvider) MaxTokens() int           { return 4096 }
func (f *fakeProvider) ValidateConfig() error    { return nil }
func (f *fakeProvider) Close() error             { return nil }

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.failAt >= 0 && len(texts) > f.failAt {
		return nil, &ai.EmbeddingFailure{
			Provider: "fake",
			Offset:   f.failAt,
			Attempts: 3,
			Cause:    errors.New("embed exhausted"),
		}
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		out[i] = []float32{
			float32(strings.Count(lower, "cat") + 1),
			float32(strings.Count(lower, "dog")),
			float32(strings.Count(lower, "bird")),
		}
	}
	return out, nil
}

func (f *fakeProvider) Complete(_ context.Context, req *ai.CompletionRequest) (*ai.CompletionResponse, error) {
	f.lastReq = req
	return &ai.CompletionResponse{Content: f.completion, Model: f.model}, nil
}

func newTestPipeline(t *testing.T, provider ai.Provider) *Pipeline {
	t.Helper()
	return newTestPipelineAt(t, t.TempDir(), provider)
}

func newTestPipelineAt(t *testing.T, dir string, provider ai.Provider) *Pipeline {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(dir, "studyrag.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	index, err := vectorindex.New(ctx, db)
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	facts, err := factstore.New(ctx, db)
	if err != nil {
		t.Fatalf("create fact store: %v", err)
	}
	sessions, err := history.NewStore(filepath.Join(dir, "sessions"))
	if err != nil {
		t.Fatalf("create history store: %v", err)
	}

	opts := DefaultOptions()
	opts.Chunking = chunker.Options{ChunkSize: 100, Overlap: 20}
	opts.Retrieval = assemble.Options{TopKDocuments: 3, TopKFacts: 2, MinScore: 0.1, MaxContextChars: 4000}
	opts.Answering = answer.DefaultOptions()

	p, err := New(provider, index, facts, sessions, opts, nil)
	if err != nil {
		t.Fatalf("create pipeline: %v", err)
	}
	return p
}

func TestIngestAndStats(t *testing.T) {
	p := newTestPipeline(t, newFakeProvider())
	ctx := context.Background()

	result, err := p.Ingest(ctx, "cats.txt", strings.Repeat("cats are independent pets ", 20))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.DocumentID == "" {
		t.Error("expected a generated document id")
	}
	if result.Chunks < 2 {
		t.Errorf("expected multiple chunks, got %d", result.Chunks)
	}

	docs, err := p.Documents(ctx)
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != 1 || docs[0].Filename != "cats.txt" {
		t.Fatalf("unexpected documents: %+v", docs)
	}
	if docs[0].ChunkCount != result.Chunks {
		t.Errorf("chunk count mismatch: %d vs %d", docs[0].ChunkCount, result.Chunks)
	}

	stats, err := p.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Documents != 1 || stats.Chunks != result.Chunks {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.EmbeddingModel != "fake-embed" || stats.Dimension != 3 {
		t.Errorf("fingerprint not recorded in stats: %+v", stats)
	}
}

func TestIngestEmptyDocument(t *testing.T) {
	p := newTestPipeline(t, newFakeProvider())
	_, err := p.Ingest(context.Background(), "empty.txt", "   \n ")
	var ingestErr *IngestError
	if !errors.As(err, &ingestErr) {
		t.Fatalf("expected IngestError, got %v", err)
	}
	if ingestErr.ChunkIndex != -1 {
		t.Errorf("non-chunk failure should report index -1, got %d", ingestErr.ChunkIndex)
	}
}

func TestIngestEmbedFailureIsAtomic(t *testing.T) {
	provider := newFakeProvider()
	provider.failAt = 1
	p := newTestPipeline(t, provider)
	ctx := context.Background()

	_, err := p.Ingest(ctx, "doc.txt", strings.Repeat("lots of text here ", 30))
	var ingestErr *IngestError
	if !errors.As(err, &ingestErr) {
		t.Fatalf("expected IngestError, got %v", err)
	}
	if ingestErr.ChunkIndex != 1 {
		t.Errorf("expected offending chunk index 1, got %d", ingestErr.ChunkIndex)
	}

	// nothing was indexed
	docs, err := p.Documents(ctx)
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("failed ingest must index nothing, got %d documents", len(docs))
	}
}

func TestAnswerWithContextAndHistory(t *testing.T) {
	provider := newFakeProvider()
	p := newTestPipeline(t, provider)
	ctx := context.Background()

	if _, err := p.Ingest(ctx, "cats.txt", "cat cat cat grooming and care"); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	result, err := p.Answer(ctx, "how do I care for a cat?", "sess-1")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if result.FromGeneralKnowledge {
		t.Error("expected a context-backed answer")
	}
	if len(result.Sources) != 1 || result.Sources[0] != "cats.txt" {
		t.Errorf("unexpected sources: %v", result.Sources)
	}
	if !strings.Contains(provider.lastReq.Prompt, "grooming and care") {
		t.Error("prompt should include retrieved chunk text")
	}

	// both turns were recorded
	second, err := p.Answer(ctx, "anything else?", "sess-1")
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if !strings.Contains(provider.lastReq.Prompt, "how do I care for a cat?") {
		t.Error("prompt should include prior session turns")
	}
	_ = second

	stats, err := p.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sessions != 1 {
		t.Errorf("expected 1 session, got %d", stats.Sessions)
	}
}

func TestAnswerFallsBackOnEmptyIndex(t *testing.T) {
	p := newTestPipeline(t, newFakeProvider())
	result, err := p.Answer(context.Background(), "what is a bird?", "")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !result.FromGeneralKnowledge {
		t.Error("empty index should yield a general-knowledge answer")
	}
	if len(result.Sources) != 0 {
		t.Errorf("expected no sources, got %v", result.Sources)
	}
}

func TestSeedFactsDedupeAndRetrieval(t *testing.T) {
	provider := newFakeProvider()
	p := newTestPipeline(t, provider)
	ctx := context.Background()

	entries := []factstore.Entry{
		{Question: "why do cats purr", Answer: "cats purr to self-soothe and communicate"},
	}
	added, err := p.SeedFacts(ctx, entries)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if added != 1 {
		t.Errorf("expected 1 fact added, got %d", added)
	}
	added, err = p.SeedFacts(ctx, entries)
	if err != nil {
		t.Fatalf("repeat seed: %v", err)
	}
	if added != 0 {
		t.Errorf("repeat seed should add 0, got %d", added)
	}

	result, err := p.Answer(ctx, "tell me about cat purring", "")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if result.FromGeneralKnowledge {
		t.Error("fact should have provided context")
	}
	if len(result.Sources) != 1 || result.Sources[0] != assemble.FAQSource {
		t.Errorf("expected FAQ source, got %v", result.Sources)
	}
	if !strings.Contains(provider.lastReq.Prompt, "self-soothe") {
		t.Error("prompt should include the fact answer")
	}
}

func TestDelete(t *testing.T) {
	p := newTestPipeline(t, newFakeProvider())
	ctx := context.Background()

	result, err := p.Ingest(ctx, "doc.txt", "cat content")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	removed, err := p.Delete(ctx, result.DocumentID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed {
		t.Error("expected removal")
	}
	removed, err = p.Delete(ctx, result.DocumentID)
	if err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	if removed {
		t.Error("repeat delete should be a no-op")
	}
}

func TestFingerprintGuardsProviderSwap(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	p := newTestPipelineAt(t, dir, newFakeProvider())
	if _, err := p.Ingest(ctx, "doc.txt", "cat content"); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// same storage, different embedding model
	swapped := newFakeProvider()
	swapped.embedModel = "other-embed"
	p2 := newTestPipelineAt(t, dir, swapped)

	var mismatch *vectorindex.FingerprintMismatchError
	if _, err := p2.Ingest(ctx, "more.txt", "dog content"); !errors.As(err, &mismatch) {
		t.Fatalf("expected fingerprint mismatch on ingest, got %v", err)
	}
	if _, err := p2.Answer(ctx, "question", ""); !errors.As(err, &mismatch) {
		t.Fatalf("expected fingerprint mismatch on answer, got %v", err)
	}
}

func TestFingerprintGuardsLazyDimensionProvider(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	p := newTestPipelineAt(t, dir, newFakeProvider())
	if _, err := p.Ingest(ctx, "doc.txt", "cat content"); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// a provider that does not know its dimensionality until the first
	// embed call must still be rejected by model id
	swapped := newFakeProvider()
	swapped.embedModel = "other-embed"
	swapped.dimension = 0
	p2 := newTestPipelineAt(t, dir, swapped)

	var mismatch *vectorindex.FingerprintMismatchError
	if _, err := p2.Answer(ctx, "question", ""); !errors.As(err, &mismatch) {
		t.Fatalf("expected fingerprint mismatch on answer, got %v", err)
	}
	if mismatch.StoredModel != "fake-embed" || mismatch.Model != "other-embed" {
		t.Errorf("unexpected mismatch detail: %+v", mismatch)
	}
}

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yildizm/studyrag/internal/ai"
	"github.com/yildizm/studyrag/internal/answer"
	"github.com/yildizm/studyrag/internal/assemble"
	"github.com/yildizm/studyrag/internal/chunker"
	"github.com/yildizm/studyrag/internal/factstore"
	"github.com/yildizm/studyrag/internal/history"
	"github.com/yildizm/studyrag/internal/logger"
	"github.com/yildizm/studyrag/internal/vectorindex"
)

// IngestResult summarizes a completed ingest.
type IngestResult struct {
	DocumentID string
	Filename   string
	Chunks     int
	Elapsed    time.Duration
}

// AnswerResult is a generated answer plus the retrieval detail behind it.
type AnswerResult struct {
	*answer.Result
	Retrieved *assemble.Context
	SessionID string
}

// Stats summarizes everything the pipeline knows, derived on demand.
type Stats struct {
	Documents      int
	Chunks         int
	Facts          int
	Sessions       int
	EmbeddingModel string
	Dimension      int
}

// Options configures a pipeline.
type Options struct {
	Chunking  chunker.Options
	Retrieval assemble.Options
	Answering answer.Options
}

// DefaultOptions returns the default pipeline configuration.
func DefaultOptions() Options {
	return Options{
		Chunking:  chunker.DefaultOptions(),
		Retrieval: assemble.DefaultOptions(),
		Answering: answer.DefaultOptions(),
	}
}

// Pipeline wires chunking, embedding, indexing, fact lookup, and generation
// into the ingest and answer flows.
type Pipeline struct {
	provider  ai.Provider
	index     *vectorindex.Index
	facts     *factstore.Store
	assembler *assemble.Assembler
	generator *answer.Generator
	sessions  *history.Store
	opts      Options
	log       *logger.Logger
}

// New builds a pipeline. The fact store and session store may be nil; the
// corresponding features are then disabled.
func New(provider ai.Provider, index *vectorindex.Index, facts *factstore.Store, sessions *history.Store, opts Options, log *logger.Logger) (*Pipeline, error) {
	if err := opts.Chunking.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("pipeline")
	}

	var factSearcher assemble.FactSearcher
	if facts != nil {
		factSearcher = facts
	}
	return &Pipeline{
		provider:  provider,
		index:     index,
		facts:     facts,
		assembler: assemble.New(provider, index, factSearcher, opts.Retrieval),
		generator: answer.New(provider, opts.Answering),
		sessions:  sessions,
		opts:      opts,
		log:       log,
	}, nil
}

// Ingest chunks, embeds, and indexes one document in a single transaction.
// On failure nothing is indexed and the returned error names the offending
// chunk when embedding was the cause. Re-ingesting under the same id
// replaces the previous version.
func (p *Pipeline) Ingest(ctx context.Context, filename, content string) (*IngestResult, error) {
	return p.IngestAs(ctx, uuid.NewString(), filename, content)
}

// IngestAs is Ingest with a caller-chosen document id.
func (p *Pipeline) IngestAs(ctx context.Context, docID, filename, content string) (*IngestResult, error) {
	start := time.Now()
	if strings.TrimSpace(content) == "" {
		return nil, newIngestError(docID, filename, fmt.Errorf("document is empty"))
	}

	pieces, err := chunker.Split(content, p.opts.Chunking)
	if err != nil {
		return nil, newIngestError(docID, filename, err)
	}
	p.log.Debug("split %s into %d chunks", filename, len(pieces))

	vectors, err := p.provider.Embed(ctx, pieces)
	if err != nil {
		return nil, newIngestError(docID, filename, err)
	}
	if len(vectors) != len(pieces) {
		return nil, newIngestError(docID, filename,
			fmt.Errorf("expected %d embeddings, got %d", len(pieces), len(vectors)))
	}

	dim := len(vectors[0])
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, &IngestError{
				DocumentID: docID,
				Filename:   filename,
				ChunkIndex: i,
				Cause:      fmt.Errorf("embedding dimension %d does not match %d", len(vec), dim),
			}
		}
	}
	if err := p.index.EnsureFingerprint(ctx, p.provider.EmbeddingModelID(), dim); err != nil {
		return nil, newIngestError(docID, filename, err)
	}

	chunks := make([]vectorindex.Chunk, len(pieces))
	for i, text := range pieces {
		chunks[i] = vectorindex.Chunk{Seq: i, Content: text, Embedding: vectors[i]}
	}
	doc := vectorindex.Document{ID: docID, Filename: filename, UploadedAt: time.Now().UTC()}
	if err := p.index.Insert(ctx, doc, chunks); err != nil {
		return nil, newIngestError(docID, filename, err)
	}

	p.log.Info("ingested %s (%d chunks)", filename, len(chunks))
	return &IngestResult{
		DocumentID: docID,
		Filename:   filename,
		Chunks:     len(chunks),
		Elapsed:    time.Since(start),
	}, nil
}

// Delete removes a document from the index. Unknown ids are a no-op.
func (p *Pipeline) Delete(ctx context.Context, docID string) (bool, error) {
	return p.index.DeleteByDocument(ctx, docID)
}

// Documents lists ingested documents.
func (p *Pipeline) Documents(ctx context.Context) ([]vectorindex.DocumentInfo, error) {
	return p.index.Documents(ctx)
}

// Answer retrieves context for the question, generates an answer, and when a
// session id is given records both turns in the transcript.
func (p *Pipeline) Answer(ctx context.Context, question, sessionID string) (*AnswerResult, error) {
	if err := p.index.CheckFingerprint(ctx, p.provider.EmbeddingModelID(), p.provider.Dimension()); err != nil {
		return nil, err
	}

	retrieved, err := p.assembler.Assemble(ctx, question)
	if err != nil {
		return nil, err
	}
	if retrieved.Empty() {
		p.log.Debug("no context cleared the score floor, answering from general knowledge")
	}

	var turns []history.Turn
	if p.sessions != nil && sessionID != "" {
		turns, err = p.sessions.Load(sessionID)
		if err != nil {
			return nil, err
		}
	}

	result, err := p.generator.Generate(ctx, question, retrieved, turns)
	if err != nil {
		return nil, err
	}

	if p.sessions != nil && sessionID != "" {
		now := time.Now().UTC()
		if err := p.sessions.Append(sessionID,
			history.Turn{Role: history.RoleUser, Content: question, Timestamp: now},
			history.Turn{Role: history.RoleAssistant, Content: result.Answer, Sources: result.Sources, Timestamp: now},
		); err != nil {
			return nil, err
		}
	}

	return &AnswerResult{Result: result, Retrieved: retrieved, SessionID: sessionID}, nil
}

// SeedFacts stores new facts and embeds any that lack vectors. Returns how
// many entries were actually added.
func (p *Pipeline) SeedFacts(ctx context.Context, entries []factstore.Entry) (int, error) {
	if p.facts == nil {
		return 0, fmt.Errorf("fact store is disabled")
	}
	added, err := p.facts.Seed(ctx, entries)
	if err != nil {
		return added, err
	}
	if err := p.facts.EmbedPending(ctx, p.provider); err != nil {
		return added, err
	}
	p.log.Info("seeded %d new facts", added)
	return added, nil
}

// Stats derives current pipeline statistics.
func (p *Pipeline) Stats(ctx context.Context) (Stats, error) {
	indexStats, err := p.index.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{
		Documents:      indexStats.Documents,
		Chunks:         indexStats.Chunks,
		EmbeddingModel: indexStats.EmbeddingModel,
		Dimension:      indexStats.Dimension,
	}
	if p.facts != nil {
		s.Facts, err = p.facts.Count(ctx)
		if err != nil {
			return Stats{}, err
		}
	}
	if p.sessions != nil {
		ids, err := p.sessions.Sessions()
		if err != nil {
			return Stats{}, err
		}
		s.Sessions = len(ids)
	}
	return s, nil
}

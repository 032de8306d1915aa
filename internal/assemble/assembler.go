package assemble

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yildizm/studyrag/internal/factstore"
	"github.com/yildizm/studyrag/internal/vectorindex"
)

// ItemKind distinguishes where a retrieved item came from.
type ItemKind string

const (
	KindDocument ItemKind = "document"
	KindFact     ItemKind = "fact"
)

// FAQSource is the provenance label attached when facts contribute to the
// context.
const FAQSource = "FAQ Database"

// RetrievedItem is one ranked piece of context.
type RetrievedItem struct {
	Kind  ItemKind
	Label string
	Score float32
	Text  string
}

// Context is the assembled retrieval result handed to generation.
type Context struct {
	// Text is the provenance-tagged context block, empty when nothing
	// cleared the score floor
	Text string

	// Items are the contributing pieces in rank order
	Items []RetrievedItem

	// Sources are the distinct provenance labels in rank order
	Sources []string
}

// Empty reports whether retrieval produced no usable context.
func (c *Context) Empty() bool {
	return len(c.Items) == 0
}

// ChunkSearcher serves similarity search over document chunks.
type ChunkSearcher interface {
	Search(ctx context.Context, query []float32, k int) ([]vectorindex.Match, error)
}

// FactSearcher serves similarity search over stored facts.
type FactSearcher interface {
	Search(ctx context.Context, query []float32, k int) ([]factstore.Match, error)
}

// Embedder produces the query embedding.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Options tunes retrieval.
type Options struct {
	// TopKDocuments is how many document chunks to retrieve
	TopKDocuments int

	// TopKFacts is how many facts to retrieve
	TopKFacts int

	// MinScore drops items scoring below this floor
	MinScore float32

	// MaxContextChars caps the assembled context text length in runes,
	// separators included; 0 means unlimited
	MaxContextChars int
}

// DefaultOptions returns the default retrieval configuration.
func DefaultOptions() Options {
	return Options{
		TopKDocuments:   5,
		TopKFacts:       3,
		MinScore:        0.2,
		MaxContextChars: 8000,
	}
}

// Assembler turns a query into a merged, provenance-tagged context block by
// embedding the query once and searching documents and facts concurrently.
type Assembler struct {
	embedder Embedder
	chunks   ChunkSearcher
	facts    FactSearcher
	opts     Options
}

// New creates an assembler. The fact searcher may be nil, in which case only
// document chunks contribute.
func New(embedder Embedder, chunks ChunkSearcher, facts FactSearcher, opts Options) *Assembler {
	return &Assembler{
		embedder: embedder,
		chunks:   chunks,
		facts:    facts,
		opts:     opts,
	}
}

// Assemble retrieves context for the query. Document chunks and facts are
// ranked together by score; ties keep document chunks ahead of facts.
func (a *Assembler) Assemble(ctx context.Context, query string) (*Context, error) {
	vectors, err := a.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}
	queryVec := vectors[0]

	var (
		wg         sync.WaitGroup
		chunkHits  []vectorindex.Match
		factHits   []factstore.Match
		chunkErr   error
		factHitErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		chunkHits, chunkErr = a.chunks.Search(ctx, queryVec, a.opts.TopKDocuments)
	}()
	if a.facts != nil && a.opts.TopKFacts > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			factHits, factHitErr = a.facts.Search(ctx, queryVec, a.opts.TopKFacts)
		}()
	}
	wg.Wait()

	if chunkErr != nil {
		return nil, fmt.Errorf("search documents: %w", chunkErr)
	}
	if factHitErr != nil {
		return nil, fmt.Errorf("search facts: %w", factHitErr)
	}

	items := make([]RetrievedItem, 0, len(chunkHits)+len(factHits))
	for _, hit := range chunkHits {
		if hit.Score < a.opts.MinScore {
			continue
		}
		items = append(items, RetrievedItem{
			Kind:  KindDocument,
			Label: hit.Filename,
			Score: hit.Score,
			Text:  hit.Content,
		})
	}
	for _, hit := range factHits {
		if hit.Score < a.opts.MinScore {
			continue
		}
		items = append(items, RetrievedItem{
			Kind:  KindFact,
			Label: FAQSource,
			Score: hit.Score,
			Text:  fmt.Sprintf("Q: %s\nA: %s", hit.Question, hit.Answer),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	result := &Context{}
	var sb strings.Builder
	used := 0
	for _, item := range items {
		block := formatItem(item)
		cost := len([]rune(block))
		if used > 0 {
			cost += len(itemSeparator)
		}
		if a.opts.MaxContextChars > 0 && used > 0 && used+cost > a.opts.MaxContextChars {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString(itemSeparator)
		}
		sb.WriteString(block)
		used += cost
		result.Items = append(result.Items, item)
	}

	result.Text = sb.String()
	result.Sources = dedupeSources(result.Items)
	return result, nil
}

const itemSeparator = "\n\n"

func formatItem(item RetrievedItem) string {
	return fmt.Sprintf("[Source: %s]\n%s", item.Label, item.Text)
}

// dedupeSources keeps the first occurrence of each label, preserving rank
// order.
func dedupeSources(items []RetrievedItem) []string {
	seen := map[string]bool{}
	var sources []string
	for _, item := range items {
		if seen[item.Label] {
			continue
		}
		seen[item.Label] = true
		sources = append(sources, item.Label)
	}
	return sources
}

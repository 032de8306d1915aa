package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/yildizm/go-promptfmt"
	"github.com/yildizm/studyrag/internal/ai"
	"github.com/yildizm/studyrag/internal/assemble"
	"github.com/yildizm/studyrag/internal/history"
)

const studySystemPrompt = "You are a helpful study assistant. Answer questions " +
	"using the provided study materials. Be clear, accurate, and educational. " +
	"When the materials do not cover the question, say so explicitly before " +
	"answering from general knowledge."

const generalKnowledgeNote = "No relevant study materials were found for this " +
	"question. Answer from general knowledge and tell the user that the answer " +
	"is not based on their uploaded documents."

// Result is a generated answer with its provenance.
type Result struct {
	Answer  string
	Sources []string
	Usage   *ai.TokenUsage
	Model   string

	// FromGeneralKnowledge is set when no retrieved context backed the
	// answer
	FromGeneralKnowledge bool
}

// Options tunes generation.
type Options struct {
	MaxTokens   int
	Temperature float64

	// HistoryTurns is how many recent turns of the session transcript to
	// include in the prompt
	HistoryTurns int
}

// DefaultOptions returns the default generation configuration.
func DefaultOptions() Options {
	return Options{
		MaxTokens:    1024,
		Temperature:  0.2,
		HistoryTurns: 6,
	}
}

// Generator produces answers from assembled context via a completion
// provider.
type Generator struct {
	provider ai.CompletionProvider
	opts     Options
}

// New creates a generator.
func New(provider ai.CompletionProvider, opts Options) *Generator {
	return &Generator{provider: provider, opts: opts}
}

// Generate answers the question from the assembled context. Sources pass
// through from retrieval untouched. When the context is empty the prompt
// switches to general-knowledge mode and the result is flagged accordingly.
func (g *Generator) Generate(ctx context.Context, question string, retrieved *assemble.Context, turns []history.Turn) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is empty")
	}

	pb := promptfmt.New().
		System(studySystemPrompt).
		User("%s", question)

	fromGeneral := retrieved == nil || retrieved.Empty()
	if fromGeneral {
		pb.AddContext("retrieval", generalKnowledgeNote)
	} else {
		pb.AddContext("study_materials", retrieved.Text)
	}

	if g.opts.HistoryTurns > 0 && len(turns) > 0 {
		recent := turns
		if len(recent) > g.opts.HistoryTurns {
			recent = recent[len(recent)-g.opts.HistoryTurns:]
		}
		pb.AddContext("conversation", history.Transcript(recent))
	}

	prompt := pb.Build()
	resp, err := g.provider.Complete(ctx, &ai.CompletionRequest{
		Prompt:       prompt.String(),
		SystemPrompt: prompt.SystemPrompt,
		MaxTokens:    g.opts.MaxTokens,
		Temperature:  g.opts.Temperature,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Answer:               strings.TrimSpace(resp.Content),
		Usage:                resp.Usage,
		Model:                resp.Model,
		FromGeneralKnowledge: fromGeneral,
	}
	if !fromGeneral {
		result.Sources = retrieved.Sources
	}
	return result, nil
}

package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yildizm/studyrag/internal/ai"
	"github.com/yildizm/studyrag/internal/assemble"
	"github.com/yildizm/studyrag/internal/history"
)

type stubProvider struct {
	lastReq *ai.CompletionRequest
	content string
	err     error
}

func (s *stubProvider) Name() string          { return "stub" }
func (s *stubProvider) MaxTokens() int        { return 4096 }
func (s *stubProvider) ValidateConfig() error { return nil }
func (s *stubProvider) Close() error          { return nil }

func (s *stubProvider) Complete(_ context.Context, req *ai.CompletionRequest) (*ai.CompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &ai.CompletionResponse{
		Content: s.content,
		Model:   "stub-model",
		Usage:   &ai.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func retrievedContext() *assemble.Context {
	return &assemble.Context{
		Text: "[Source: notes.txt]\nactive recall beats rereading",
		Items: []assemble.RetrievedItem{
			{Kind: assemble.KindDocument, Label: "notes.txt", Score: 0.9, Text: "active recall beats rereading"},
		},
		Sources: []string{"notes.txt"},
	}
}

func TestGenerateWithContext(t *testing.T) {
	provider := &stubProvider{content: "  Use active recall.  "}
	g := New(provider, DefaultOptions())

	result, err := g.Generate(context.Background(), "how should I study?", retrievedContext(), nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Answer != "Use active recall." {
		t.Errorf("answer not trimmed: %q", result.Answer)
	}
	if result.FromGeneralKnowledge {
		t.Error("result should not be flagged as general knowledge")
	}
	if len(result.Sources) != 1 || result.Sources[0] != "notes.txt" {
		t.Errorf("sources should pass through: %v", result.Sources)
	}
	if result.Model != "stub-model" || result.Usage.TotalTokens != 15 {
		t.Errorf("usage/model not propagated: %+v", result)
	}

	if !strings.Contains(provider.lastReq.Prompt, "active recall beats rereading") {
		t.Error("prompt should embed the retrieved context")
	}
	if !strings.Contains(provider.lastReq.Prompt, "how should I study?") {
		t.Error("prompt should embed the question")
	}
	if provider.lastReq.SystemPrompt == "" {
		t.Error("system prompt missing")
	}
}

func TestGenerateEmptyContextFallsBack(t *testing.T) {
	provider := &stubProvider{content: "Generally speaking..."}
	g := New(provider, DefaultOptions())

	result, err := g.Generate(context.Background(), "what is photosynthesis?", &assemble.Context{}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !result.FromGeneralKnowledge {
		t.Error("empty context should flag general knowledge")
	}
	if len(result.Sources) != 0 {
		t.Errorf("general-knowledge answers carry no sources: %v", result.Sources)
	}
	if !strings.Contains(provider.lastReq.Prompt, "No relevant study materials") {
		t.Error("prompt should instruct the model to disclose the fallback")
	}
}

func TestGenerateIncludesRecentHistory(t *testing.T) {
	provider := &stubProvider{content: "answer"}
	opts := DefaultOptions()
	opts.HistoryTurns = 2
	g := New(provider, opts)

	turns := []history.Turn{
		{Role: history.RoleUser, Content: "old question"},
		{Role: history.RoleAssistant, Content: "old answer"},
		{Role: history.RoleUser, Content: "recent question"},
	}
	if _, err := g.Generate(context.Background(), "follow up", retrievedContext(), turns); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Contains(provider.lastReq.Prompt, "old question") {
		t.Error("turns beyond the window should be dropped")
	}
	if !strings.Contains(provider.lastReq.Prompt, "recent question") {
		t.Error("recent turns should be included")
	}
}

func TestGenerateErrors(t *testing.T) {
	g := New(&stubProvider{}, DefaultOptions())
	if _, err := g.Generate(context.Background(), "   ", retrievedContext(), nil); err == nil {
		t.Error("expected error for blank question")
	}

	failure := &ai.GenerationFailure{Provider: "stub", Attempts: 3, Cause: errors.New("boom")}
	g = New(&stubProvider{err: failure}, DefaultOptions())
	_, err := g.Generate(context.Background(), "q", retrievedContext(), nil)
	var genErr *ai.GenerationFailure
	if !errors.As(err, &genErr) {
		t.Errorf("expected GenerationFailure to propagate, got %v", err)
	}
}

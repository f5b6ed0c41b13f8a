package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/cv-screener/internal/ai"
)

type fakeModels struct {
	mu        sync.Mutex
	responses []fakeResponse
	configs   []*genai.GenerateContentConfig
	prompts   []string
	embedded  []string
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, config)
	f.prompts = append(f.prompts, contents[0].Parts[0].Text)
	if len(f.responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next.resp, next.err
}

func (f *fakeModels) EmbedContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedded = append(f.embedded, contents[0].Parts[0].Text)
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
	}, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func testGenerator(m *fakeModels) *Generator {
	g := newGenerator(m, Options{Model: "gemini-test", MaxRetries: 2, Logger: zap.NewNop()})
	g.retry.InitialBackoff = time.Millisecond
	g.retry.MaxBackoff = time.Millisecond
	return g
}

func TestGeneratorCompleteBuildsConfig(t *testing.T) {
	m := &fakeModels{responses: []fakeResponse{{resp: textResponse(`{"ok": true}`)}}}
	g := testGenerator(m)

	out, err := g.Complete(context.Background(), ai.Request{
		System:      "rubric",
		User:        "resume",
		Temperature: 0.2,
		MaxTokens:   1200,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"ok": true}` {
		t.Fatalf("unexpected output: %q", out)
	}

	cfg := m.configs[0]
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "rubric" {
		t.Fatalf("expected system instruction to be set")
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.2 {
		t.Fatalf("unexpected temperature: %v", cfg.Temperature)
	}
	if cfg.MaxOutputTokens != 1200 {
		t.Fatalf("unexpected max tokens: %d", cfg.MaxOutputTokens)
	}
	if cfg.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json mime type, got %q", cfg.ResponseMIMEType)
	}
	if m.prompts[0] != "resume" {
		t.Fatalf("unexpected prompt: %q", m.prompts[0])
	}
}

func TestGeneratorRetriesOnServerError(t *testing.T) {
	m := &fakeModels{responses: []fakeResponse{
		{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}},
		{resp: textResponse("retry ok")},
	}}
	g := testGenerator(m)

	out, err := g.Complete(context.Background(), ai.Request{User: "message"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "retry ok" {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(m.configs) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(m.configs))
	}
}

func TestGeneratorDoesNotRetryClientError(t *testing.T) {
	m := &fakeModels{responses: []fakeResponse{
		{err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}},
	}}
	g := testGenerator(m)

	if _, err := g.Complete(context.Background(), ai.Request{User: "message"}); err == nil {
		t.Fatal("expected error")
	}
	if len(m.configs) != 1 {
		t.Fatalf("expected single call, got %d", len(m.configs))
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	m := &fakeModels{responses: []fakeResponse{{resp: textResponse("   ")}}}
	g := testGenerator(m)

	_, err := g.Complete(context.Background(), ai.Request{User: "message"})
	if !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGeneratorEmbed(t *testing.T) {
	m := &fakeModels{}
	g := testGenerator(m)

	vec, err := g.Embed(context.Background(), "Go and distributed systems")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if m.embedded[0] != "Go and distributed systems" {
		t.Fatalf("unexpected embedded text: %q", m.embedded[0])
	}
}

package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("ai provider returned empty response")

// Request is a single oracle completion.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	// JSON asks the provider for a machine-parseable JSON response when supported.
	JSON bool
}

// Completer sends prompts to a language model.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Describer is implemented by providers that can name themselves in logs.
type Describer interface {
	Provider() string
	Model() string
}

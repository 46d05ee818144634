// Package provider implements the LLM Gateway: a uniform polymorphic
// interface over providers (OpenAI-like, Anthropic, Gemini-like, local and
// remote Ollama-like), response normalization, model selection, and usage
// tracking, per spec.md §4.7.
package provider

import (
	"context"
	"errors"

	"github.com/docwizard/engine/pkg/types"
)

// ErrNoModel is returned when model selection exhausts every strategy
// without finding an enabled, available model.
var ErrNoModel = errors.New("provider: no available model")

// ErrEmptyResponse is returned when a provider's normalized response is the
// empty string, per spec.md §4.7's "empty final string is an error".
var ErrEmptyResponse = errors.New("provider: empty response after normalization")

// CompletionRequest is one gateway-level call.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
}

// Message is a minimal role/content pair, independent of any one
// provider's wire format.
type Message struct {
	Role    string
	Content string
}

// CompletionResult is what every Gateway.Complete call normalizes to.
type CompletionResult struct {
	Content      string
	Provider     string
	Model        string
	TokensUsed   int
}

// StreamChunk is one piece of a lazily-produced completion.
type StreamChunk struct {
	Content string
	Done    bool
}

// Provider is implemented by every concrete LLM backend.
type Provider interface {
	// ID returns the provider identifier used in configuration and the
	// model registry's provider column.
	ID() string

	// ListModels returns the provider's currently known models, querying
	// the upstream "list models" endpoint when the provider supports one.
	ListModels(ctx context.Context) ([]types.Model, error)

	// RawComplete issues one completion call and returns the provider's
	// raw, not-yet-normalized content value: a string, a []any of string
	// chunks, or a map[string]any keyed by stringified integer index, plus
	// a best-effort token usage count.
	RawComplete(ctx context.Context, req *CompletionRequest) (raw any, tokensUsed int, err error)

	// Stream returns a lazy sequence of already-normalized text chunks.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, <-chan error)
}

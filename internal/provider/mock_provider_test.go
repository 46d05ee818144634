package provider

import (
	"context"

	"github.com/docwizard/engine/pkg/types"
)

// mockProvider is a test double implementing Provider without any network
// calls, letting tests exercise Gateway/Registry selection and
// normalization logic directly.
type mockProvider struct {
	id        string
	models    []types.Model
	rawValue  any
	rawTokens int
	rawErr    error
}

func (m *mockProvider) ID() string { return m.id }

func (m *mockProvider) ListModels(ctx context.Context) ([]types.Model, error) {
	return m.models, nil
}

func (m *mockProvider) RawComplete(ctx context.Context, req *CompletionRequest) (any, int, error) {
	if m.rawErr != nil {
		return nil, 0, m.rawErr
	}
	return m.rawValue, m.rawTokens, nil
}

func (m *mockProvider) Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk, 1)
	errs := make(chan error, 1)
	chunks <- StreamChunk{Content: "mock", Done: true}
	close(chunks)
	close(errs)
	return chunks, errs
}

package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/docwizard/engine/pkg/types"
)

// OpenAIProvider implements Provider for OpenAI and any OpenAI-compatible
// backend selected by BaseURL — this is how Gemini-like and both local and
// remote Ollama-like backends are reached, per spec.md §4.7's polymorphic
// provider set.
type OpenAIProvider struct {
	id        string
	chatModel model.ToolCallingChatModel
	cfg       *OpenAIConfig
}

// OpenAIConfig holds the construction parameters for an OpenAI-compatible
// provider instance.
type OpenAIConfig struct {
	ID        string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewOpenAIProvider creates an OpenAI-compatible Provider. APIKey may be
// empty for local backends that don't require one.
func NewOpenAIProvider(ctx context.Context, cfg *OpenAIConfig) (*OpenAIProvider, error) {
	modelID := cfg.Model
	if modelID == "" {
		modelID = "gpt-4o"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	chatCfg := &openai.ChatModelConfig{
		APIKey:              cfg.APIKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	}
	if cfg.BaseURL != "" {
		chatCfg.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, chatCfg)
	if err != nil {
		return nil, fmt.Errorf("openai: create chat model: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = "openai"
	}
	return &OpenAIProvider{id: id, chatModel: chatModel, cfg: cfg}, nil
}

// ID returns the provider identifier.
func (p *OpenAIProvider) ID() string { return p.id }

// ListModels returns a static catalogue. OpenAI-compatible backends vary
// too widely in their /models endpoint shape to parse uniformly here; the
// Registry's SelectModel falls back to its preference list when this comes
// back thin.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]types.Model, error) {
	return []types.Model{
		{Name: "gpt-4o", DisplayName: "GPT-4o", Provider: p.id,
			Family: "gpt", IsAvailable: true, IsEnabled: true, ContextWindow: 128000, MaxTokens: 16384},
		{Name: "gpt-4o-mini", DisplayName: "GPT-4o Mini", Provider: p.id,
			Family: "gpt", IsAvailable: true, IsEnabled: true, ContextWindow: 128000, MaxTokens: 16384},
	}, nil
}

// RawComplete issues a non-streaming completion.
func (p *OpenAIProvider) RawComplete(ctx context.Context, req *CompletionRequest) (any, int, error) {
	msgs := toEinoMessages(req)
	opts := []model.Option{openai.WithMaxCompletionTokens(req.MaxTokens)}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}

	out, err := p.chatModel.Generate(ctx, msgs, opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("openai: generate: %w", err)
	}

	tokens := 0
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		tokens = out.ResponseMeta.Usage.TotalTokens
	}
	return out.Content, tokens, nil
}

// Stream returns a lazy sequence of text chunks from a streaming completion.
func (p *OpenAIProvider) Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		msgs := toEinoMessages(req)
		opts := []model.Option{openai.WithMaxCompletionTokens(req.MaxTokens)}
		if req.Temperature > 0 {
			opts = append(opts, model.WithTemperature(float32(req.Temperature)))
		}

		reader, err := p.chatModel.Stream(ctx, msgs, opts...)
		if err != nil {
			errs <- fmt.Errorf("openai: stream: %w", err)
			return
		}
		defer reader.Close()

		for {
			msg, err := reader.Recv()
			if err != nil {
				if err != context.Canceled {
					errs <- err
				}
				return
			}
			chunks <- StreamChunk{Content: msg.Content}
		}
	}()

	return chunks, errs
}

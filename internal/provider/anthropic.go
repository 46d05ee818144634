package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/docwizard/engine/pkg/types"
)

// AnthropicProvider implements Provider over Anthropic's Claude models via
// the Eino claude component.
type AnthropicProvider struct {
	id        string
	chatModel model.ToolCallingChatModel
	cfg       *AnthropicConfig
}

// AnthropicConfig holds the construction parameters for an Anthropic
// provider instance.
type AnthropicConfig struct {
	ID        string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewAnthropicProvider creates an Anthropic-backed Provider.
func NewAnthropicProvider(ctx context.Context, cfg *AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key not set")
	}
	modelID := cfg.Model
	if modelID == "" {
		modelID = "claude-sonnet-4-20250514"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	claudeCfg := &claude.Config{APIKey: cfg.APIKey, Model: modelID, MaxTokens: maxTokens}
	if cfg.BaseURL != "" {
		claudeCfg.BaseURL = &cfg.BaseURL
	}

	chatModel, err := claude.NewChatModel(ctx, claudeCfg)
	if err != nil {
		return nil, fmt.Errorf("anthropic: create chat model: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = "anthropic"
	}
	return &AnthropicProvider{id: id, chatModel: chatModel, cfg: cfg}, nil
}

// ID returns the provider identifier.
func (p *AnthropicProvider) ID() string { return p.id }

// ListModels returns Anthropic's known chat models. Anthropic has no public
// "list models" endpoint usable without an admin key, so this is a static
// catalogue, matching the fallback path spec.md §4.7 anticipates.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]types.Model, error) {
	return []types.Model{
		{Name: "claude-sonnet-4-20250514", DisplayName: "Claude Sonnet 4", Provider: p.id,
			Family: "claude", IsAvailable: true, IsEnabled: true, ContextWindow: 200000, MaxTokens: 64000},
		{Name: "claude-opus-4-20250514", DisplayName: "Claude Opus 4", Provider: p.id,
			Family: "claude", IsAvailable: true, IsEnabled: true, ContextWindow: 200000, MaxTokens: 32000},
		{Name: "claude-3-5-haiku-20241022", DisplayName: "Claude 3.5 Haiku", Provider: p.id,
			Family: "claude", IsAvailable: true, IsEnabled: true, ContextWindow: 200000, MaxTokens: 8192},
	}, nil
}

// RawComplete issues a non-streaming completion and returns its content as
// a plain string — Claude's API never returns the array/object response
// shapes spec.md §4.7 normalizes, but Normalize still passes a string
// straight through.
func (p *AnthropicProvider) RawComplete(ctx context.Context, req *CompletionRequest) (any, int, error) {
	msgs := toEinoMessages(req)
	opts := []model.Option{model.WithMaxTokens(req.MaxTokens)}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}

	out, err := p.chatModel.Generate(ctx, msgs, opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("anthropic: generate: %w", err)
	}

	tokens := 0
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		tokens = out.ResponseMeta.Usage.TotalTokens
	}
	return out.Content, tokens, nil
}

// Stream returns a lazy sequence of text chunks from a streaming completion.
func (p *AnthropicProvider) Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		msgs := toEinoMessages(req)
		opts := []model.Option{model.WithMaxTokens(req.MaxTokens)}
		if req.Temperature > 0 {
			opts = append(opts, model.WithTemperature(float32(req.Temperature)))
		}

		reader, err := p.chatModel.Stream(ctx, msgs, opts...)
		if err != nil {
			errs <- fmt.Errorf("anthropic: stream: %w", err)
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

func toEinoMessages(req *CompletionRequest) []*schema.Message {
	var msgs []*schema.Message
	if req.SystemPrompt != "" {
		msgs = append(msgs, &schema.Message{Role: schema.System, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		role := schema.User
		switch m.Role {
		case "assistant":
			role = schema.Assistant
		case "system":
			role = schema.System
		}
		msgs = append(msgs, &schema.Message{Role: role, Content: m.Content})
	}
	if req.UserPrompt != "" {
		msgs = append(msgs, &schema.Message{Role: schema.User, Content: req.UserPrompt})
	}
	return msgs
}

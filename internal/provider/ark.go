package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/docwizard/engine/pkg/types"
)

// ArkProvider implements Provider over Volcengine's ARK platform.
type ArkProvider struct {
	chatModel model.ToolCallingChatModel
	endpoint  string
}

// ArkConfig holds the construction parameters for an ARK provider instance.
type ArkConfig struct {
	APIKey    string
	BaseURL   string
	Model     string // ARK endpoint ID
	MaxTokens int
}

// NewArkProvider creates an ARK-backed Provider.
func NewArkProvider(ctx context.Context, cfg *ArkConfig) (*ArkProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ark: API key not set")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ark: endpoint id not set")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	arkCfg := &ark.ChatModelConfig{APIKey: cfg.APIKey, Model: cfg.Model, MaxTokens: &maxTokens}
	if cfg.BaseURL != "" {
		arkCfg.BaseURL = cfg.BaseURL
	}

	chatModel, err := ark.NewChatModel(ctx, arkCfg)
	if err != nil {
		return nil, fmt.Errorf("ark: create chat model: %w", err)
	}
	return &ArkProvider{chatModel: chatModel, endpoint: cfg.Model}, nil
}

// ID returns the provider identifier.
func (p *ArkProvider) ID() string { return "ark" }

// ListModels returns the single endpoint this provider instance was
// configured against — ARK exposes models as per-account endpoints rather
// than a shared catalogue.
func (p *ArkProvider) ListModels(ctx context.Context) ([]types.Model, error) {
	return []types.Model{
		{Name: p.endpoint, DisplayName: "ARK " + p.endpoint, Provider: "ark",
			Family: "ark", IsAvailable: true, IsEnabled: true, ContextWindow: 128000, MaxTokens: 4096},
	}, nil
}

// RawComplete issues a non-streaming completion.
func (p *ArkProvider) RawComplete(ctx context.Context, req *CompletionRequest) (any, int, error) {
	msgs := toEinoMessages(req)
	opts := []model.Option{model.WithMaxTokens(req.MaxTokens)}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}

	out, err := p.chatModel.Generate(ctx, msgs, opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("ark: generate: %w", err)
	}

	tokens := 0
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		tokens = out.ResponseMeta.Usage.TotalTokens
	}
	return out.Content, tokens, nil
}

// Stream returns a lazy sequence of text chunks from a streaming completion.
func (p *ArkProvider) Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, <-chan error) {
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
			errs <- fmt.Errorf("ark: stream: %w", err)
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

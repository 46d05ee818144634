package provider

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/docwizard/engine/pkg/types"
)

// Gateway is the LLM Gateway: the single entry point the Executor calls
// through, combining model selection, rate limiting, retry, response
// normalization, and usage tracking (spec.md §4.7).
type Gateway struct {
	registry *Registry
	limiter  *rate.Limiter
	log      zerolog.Logger
}

// NewGateway creates a Gateway over the given Registry. limiter may be nil
// to disable rate limiting (tests typically pass nil).
func NewGateway(registry *Registry, limiter *rate.Limiter, log zerolog.Logger) *Gateway {
	return &Gateway{registry: registry, limiter: limiter, log: log.With().Str("component", "provider.gateway").Logger()}
}

// Complete resolves a model (via Registry.SelectModel), issues one
// completion call with retry/backoff, normalizes the response, and records
// usage. preferredModel may be "", "model-name", or "provider/model-name".
func (g *Gateway) Complete(ctx context.Context, preferredModel string, req *CompletionRequest) (*CompletionResult, error) {
	m, err := g.registry.SelectModel(ctx, preferredModel)
	if err != nil {
		return nil, err
	}

	p, ok := g.registry.Provider(m.Provider)
	if !ok {
		return nil, fmt.Errorf("provider: no backend registered for %q (model %q)", m.Provider, m.Name)
	}

	callReq := *req
	callReq.Model = m.Name
	if callReq.MaxTokens == 0 {
		callReq.MaxTokens = m.MaxTokens
	}

	var raw any
	var tokensUsed int
	op := func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		var callErr error
		raw, tokensUsed, callErr = p.RawComplete(ctx, &callReq)
		return callErr
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("provider: complete via %s/%s: %w", m.Provider, m.Name, err)
	}

	content, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	if err := g.registry.RecordUsage(ctx, m.Name); err != nil {
		g.log.Warn().Err(err).Str("model", m.Name).Msg("usage tracking failed")
	}

	return &CompletionResult{Content: content, Provider: m.Provider, Model: m.Name, TokensUsed: tokensUsed}, nil
}

// Chat is Complete's multi-message counterpart: req.Messages carries the
// full conversation turn sequence instead of a single user prompt.
func (g *Gateway) Chat(ctx context.Context, preferredModel string, req *CompletionRequest) (*CompletionResult, error) {
	return g.Complete(ctx, preferredModel, req)
}

// Stream resolves a model exactly as Complete does, then delegates to the
// provider's own streaming implementation for the lazy chunk sequence.
func (g *Gateway) Stream(ctx context.Context, preferredModel string, req *CompletionRequest) (<-chan StreamChunk, <-chan error) {
	m, err := g.registry.SelectModel(ctx, preferredModel)
	if err != nil {
		errs := make(chan error, 1)
		errs <- err
		close(errs)
		return nil, errs
	}

	p, ok := g.registry.Provider(m.Provider)
	if !ok {
		errs := make(chan error, 1)
		errs <- fmt.Errorf("provider: no backend registered for %q", m.Provider)
		close(errs)
		return nil, errs
	}

	callReq := *req
	callReq.Model = m.Name
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			errs := make(chan error, 1)
			errs <- err
			close(errs)
			return nil, errs
		}
	}
	return p.Stream(ctx, &callReq)
}

// ResolvedModelWindow returns the context window (in tokens) for the model
// that would currently be selected for preferredModel, used by the
// Chunking Planner to size chunks against the right window.
func (g *Gateway) ResolvedModelWindow(ctx context.Context, preferredModel string) (types.Model, error) {
	return g.registry.SelectModel(ctx, preferredModel)
}

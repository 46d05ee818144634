// Package provider implements the LLM Gateway: a uniform polymorphic
// interface over LLM backends built on the Eino framework, model
// selection, response normalization, and usage tracking.
//
// # Core Components
//
//   - Provider: implemented by each concrete backend (Anthropic, OpenAI and
//     OpenAI-compatible endpoints, ARK)
//   - Registry: holds registered providers, persists the model registry to
//     the durable sqlite tier, and implements model selection
//   - Gateway: the single call surface (Complete/Chat/Stream) combining
//     selection, rate limiting, retry, and normalization
//
// # Providers
//
// AnthropicProvider wraps Eino's claude component. OpenAIProvider wraps
// Eino's openai component and, by setting BaseURL, doubles as the
// OpenAI-compatible adapter for Gemini-like and both local and remote
// Ollama-like backends. ArkProvider wraps Eino's ark component for
// Volcengine's platform.
//
//	p, err := provider.NewAnthropicProvider(ctx, &provider.AnthropicConfig{
//		APIKey: "sk-...",
//		Model:  "claude-sonnet-4-20250514",
//	})
//
// # Model selection
//
// Registry.SelectModel implements the fallback chain: an explicit
// "provider/model" or bare model name always wins; otherwise the highest
// priority enabled+available registry row is chosen, refreshing from every
// registered provider on an empty result, then falling back to a static
// preference list, then any available row.
//
// # Response normalization
//
// Provider.RawComplete returns the provider's un-normalized content value
// — a string, a []any of string chunks, or a map[string]any keyed by
// stringified integers. Normalize concatenates any of the three into a
// single string; an empty result is ErrEmptyResponse.
//
//	content, err := provider.Normalize(raw)
//
// # Gateway usage
//
//	gw := provider.NewGateway(registry, limiter, log)
//	res, err := gw.Complete(ctx, "", &provider.CompletionRequest{
//		SystemPrompt: "...",
//		UserPrompt:   "...",
//	})
package provider

package types

import "time"

// EngineConfig holds the tunable knobs enumerated in spec.md §6
// ("Configuration (recognized options)"). Every field has a default that
// matches the spec's table; internal/config overlays these with values
// discovered from the global config dir, the project .wizard/ dir, and
// environment variables, in that precedence order.
type EngineConfig struct {
	// SessionTTLSeconds is the initial expiry granted to a new Session.
	SessionTTLSeconds int `json:"sessionTTLSeconds" yaml:"sessionTTLSeconds"`
	// ConversationTTLSeconds bounds how long the hot cache of
	// ConversationMessages for a session is retained.
	ConversationTTLSeconds int `json:"conversationTTLSeconds" yaml:"conversationTTLSeconds"`
	// MaxConcurrentProcessing caps the number of sessions the executor
	// pool may run in flight simultaneously.
	MaxConcurrentProcessing int `json:"maxConcurrentProcessing" yaml:"maxConcurrentProcessing"`
	// SafeFraction is the share of a model's context window the Chunking
	// Planner treats as usable before it must split work into chunks.
	SafeFraction float64 `json:"safeFraction" yaml:"safeFraction"`
	// PerFileContentFraction bounds how much of the safe budget a single
	// file's content may consume before the planner sub-chunks that file.
	PerFileContentFraction float64 `json:"perFileContentFraction" yaml:"perFileContentFraction"`
	// ChunkOverlapChars is the character overlap carried between adjacent
	// chunks of the same file so context is not lost at a chunk boundary.
	ChunkOverlapChars int `json:"chunkOverlapChars" yaml:"chunkOverlapChars"`
	// ModelCacheTTLMillis bounds how long a provider's model listing is
	// cached before being re-fetched.
	ModelCacheTTLMillis int64 `json:"modelCacheTTLMillis" yaml:"modelCacheTTLMillis"`
	// CleanupIntervalMillis is the period of the expired-session sweep.
	CleanupIntervalMillis int64 `json:"cleanupIntervalMillis" yaml:"cleanupIntervalMillis"`
	// CleanupCronExpr, if set, is a five-field cron expression gating the
	// sweep: the ticker still fires every CleanupInterval, but the sweep
	// only runs when the cron expression is also due, letting an operator
	// confine cleanup to, say, off-peak hours. Empty means every tick runs.
	CleanupCronExpr string `json:"cleanupCronExpr,omitempty" yaml:"cleanupCronExpr,omitempty"`
}

// DefaultEngineConfig returns the spec's documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SessionTTLSeconds:       3600,
		ConversationTTLSeconds:  86400,
		MaxConcurrentProcessing: 5,
		SafeFraction:            0.8,
		PerFileContentFraction:  0.6,
		ChunkOverlapChars:       500,
		ModelCacheTTLMillis:     300_000,
		CleanupIntervalMillis:   3_600_000,
	}
}

// SessionTTL returns SessionTTLSeconds as a time.Duration.
func (c EngineConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// ConversationTTL returns ConversationTTLSeconds as a time.Duration.
func (c EngineConfig) ConversationTTL() time.Duration {
	return time.Duration(c.ConversationTTLSeconds) * time.Second
}

// ModelCacheTTL returns ModelCacheTTLMillis as a time.Duration.
func (c EngineConfig) ModelCacheTTL() time.Duration {
	return time.Duration(c.ModelCacheTTLMillis) * time.Millisecond
}

// CleanupInterval returns CleanupIntervalMillis as a time.Duration.
func (c EngineConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMillis) * time.Millisecond
}

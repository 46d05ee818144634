package types

// Model is one row of the persisted model registry (spec.md §4.7): a model
// name known to a provider, together with the metadata the LLM Gateway
// needs to select and size work against it.
type Model struct {
	// RegistryID is a generated identifier stamped the first time a model is
	// upserted, independent of Name (the table's natural key) — stable even
	// if a provider later renames or re-tags the same underlying model.
	RegistryID    string  `json:"registryID,omitempty"`
	Name          string  `json:"name"`
	DisplayName   string  `json:"displayName"`
	Provider      string  `json:"provider"`
	Size          int64   `json:"size,omitempty"`
	Family        string  `json:"family,omitempty"`
	ParameterSize string  `json:"parameterSize,omitempty"`
	Quantization  string  `json:"quantization,omitempty"`
	IsAvailable   bool    `json:"isAvailable"`
	IsEnabled     bool    `json:"isEnabled"`
	// Priority orders model selection ascending: smaller sorts first.
	// Derived from name when unset — explicit preference list scores low,
	// generic default is 100, extremely-large variants score 200.
	Priority      int     `json:"priority"`
	ContextWindow int     `json:"contextWindow"`
	MaxTokens     int     `json:"maxTokens"`
	Temperature   float64 `json:"temperature,omitempty"`
	LastChecked   int64   `json:"lastChecked,omitempty"`
	LastUsed      int64   `json:"lastUsed,omitempty"`
	UsageCount    int64   `json:"usageCount"`
}

// DefaultModelPriority and the two named bands selection falls back to when
// a model's priority isn't explicitly configured (spec.md §4.7).
const (
	PriorityDefault     = 100
	PriorityExtraLarge  = 200
)

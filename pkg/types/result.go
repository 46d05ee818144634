package types

// ResultStatus is the lifecycle state of an assembled Result.
type ResultStatus string

const (
	ResultDraft               ResultStatus = "DRAFT"
	ResultPendingConfirmation ResultStatus = "PENDING_CONFIRMATION"
	ResultConfirmed           ResultStatus = "CONFIRMED"
	ResultModified            ResultStatus = "MODIFIED"
)

// ResultAction is an operator/user decision applied to a Result, per
// spec.md §4.9.
type ResultAction string

const (
	ActionConfirm    ResultAction = "CONFIRM"
	ActionModify     ResultAction = "MODIFY"
	ActionRegenerate ResultAction = "REGENERATE"
)

// ResultMetadata carries the provenance of one assembled Result.
type ResultMetadata struct {
	PromptCount  int    `json:"promptCount"`
	GeneratedAt  int64  `json:"generatedAt"`
	SourcePrompt string `json:"sourcePromptID,omitempty"`
	// DiffSummary is a human-readable summary of what changed versus the
	// previous version, set on MODIFY (spec.md §4.9); empty for a first
	// version or a fresh PERSIST.
	DiffSummary string `json:"diffSummary,omitempty"`
}

// Result is one versioned, assembled output document for a Session. Each
// MODIFY and each REGENERATE run produces a new Version rather than
// overwriting the previous one (CONFIRM only changes the status of an
// existing version), so the full edit history survives for the lifetime of
// the Session.
type Result struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionID"`
	Version   int            `json:"version"`
	Content   string         `json:"content"`
	Format    string         `json:"format"`
	Status    ResultStatus   `json:"status"`
	Metadata  ResultMetadata `json:"metadata"`
	CreatedAt int64          `json:"createdAt"`
}

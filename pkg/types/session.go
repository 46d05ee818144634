// Package types provides the core data types shared across the document
// wizard engine: sessions, files, prompts, conversation messages, results,
// and the configuration surface.
package types

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionActive     SessionStatus = "ACTIVE"
	SessionProcessing SessionStatus = "PROCESSING"
	SessionCompleted  SessionStatus = "COMPLETED"
	SessionFailed     SessionStatus = "FAILED"
	SessionExpired    SessionStatus = "EXPIRED"
)

// validSessionTransitions enumerates the directed acyclic graph of legal
// status transitions (spec.md §3, Session invariant).
var validSessionTransitions = map[SessionStatus]map[SessionStatus]bool{
	SessionActive: {
		SessionProcessing: true,
		SessionExpired:    true,
	},
	SessionProcessing: {
		SessionCompleted: true,
		SessionFailed:    true,
		SessionExpired:   true,
	},
	SessionCompleted: {
		// REGENERATE resets a session's prompts to PENDING and re-enqueues
		// them (spec.md §4.9 end-to-end scenario), sending a completed
		// session back through processing for a new Result version.
		SessionProcessing: true,
		SessionExpired:     true,
	},
	SessionFailed: {
		SessionExpired: true,
	},
	SessionExpired: {},
}

// CanTransition reports whether moving from "from" to "to" is legal.
func CanTransition(from, to SessionStatus) bool {
	if from == to {
		return true
	}
	next, ok := validSessionTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Session is the root entity owning Files, Prompts, ConversationMessages,
// and Results for one wizard run.
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userID,omitempty"`
	Status    SessionStatus  `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt int64          `json:"createdAt"`
	ExpiresAt int64          `json:"expiresAt"`
	UpdatedAt int64          `json:"updatedAt"`
}

package event

import "github.com/docwizard/engine/pkg/types"

// EventType identifiers for the document wizard's real-time surface
// (spec.md §6: "a publish/subscribe channel emits, per session, events
// progress, model_result, clarification, completed, error").
const (
	Progress     EventType = "progress"
	ModelResult  EventType = "model_result"
	Clarification EventType = "clarification"
	Completed    EventType = "completed"
	Failed       EventType = "error"
)

// Envelope is the common shape of every payload published on the bus: every
// event carries the session id and an ISO-8601 timestamp alongside its
// type-specific Data.
type Envelope struct {
	SessionID string `json:"sessionID"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// ProgressData reports incremental movement on one Prompt within a session.
type ProgressData struct {
	PromptID string            `json:"promptID"`
	Status   types.PromptStatus `json:"status"`
	Detail   string            `json:"detail,omitempty"`
}

// ModelResultData carries one completed LLM call's normalized output.
type ModelResultData struct {
	PromptID string `json:"promptID"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Content  string `json:"content"`
}

// ClarificationData announces a new pending clarification question.
type ClarificationData struct {
	MessageID string `json:"messageID"`
	PromptID  string `json:"promptID,omitempty"`
	Question  string `json:"question"`
}

// CompletedData announces that a session finished with an assembled Result.
type CompletedData struct {
	ResultID string `json:"resultID"`
	Version  int    `json:"version"`
}

// ErrorData carries a processing error that failed a session.
type ErrorData struct {
	PromptID string `json:"promptID,omitempty"`
	Message  string `json:"message"`
}

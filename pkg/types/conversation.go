package types

// MessageType distinguishes plain progress notes from the clarification and
// modification threads the Clarification Engine and Result Assembler drive.
type MessageType string

const (
	MessageGeneral      MessageType = "GENERAL"
	MessageClarification MessageType = "CLARIFICATION"
	MessageModification MessageType = "MODIFICATION"
)

// MessageRole is who authored a ConversationMessage.
type MessageRole string

const (
	RoleSystem    MessageRole = "SYSTEM"
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
)

// ConversationMessage is one append-only entry in a Session's log.
type ConversationMessage struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionID"`
	Type      MessageType    `json:"type"`
	Role      MessageRole    `json:"role"`
	Content   string         `json:"content"`
	Context   map[string]any `json:"context,omitempty"`
	ParentID  string         `json:"parentID,omitempty"`
	// Sequence is a monotonic per-session insertion counter that backs the
	// strict ordering guarantee of spec.md §5(c); wall-clock timestamps
	// alone are not reliably monotonic under clock coarsening.
	Sequence  int64 `json:"sequence"`
	CreatedAt int64 `json:"createdAt"`
}

// IsPendingClarification reports whether an ASSISTANT CLARIFICATION message
// still lacks a resolving child, per spec.md §3/§4.8.
func IsPendingClarification(msg *ConversationMessage, children []*ConversationMessage) bool {
	if msg.Type != MessageClarification || msg.Role != RoleAssistant {
		return false
	}
	for _, c := range children {
		if c.ParentID != msg.ID {
			continue
		}
		if c.Role == RoleUser {
			return false
		}
		if c.Role == RoleSystem {
			if resolved, ok := c.Context["resolved"].(bool); ok && resolved {
				return false
			}
		}
	}
	return true
}

package clarify

import (
	"context"
	"fmt"

	"github.com/docwizard/engine/internal/conversation"
	"github.com/docwizard/engine/pkg/types"
)

// RaiseQuestions appends one CLARIFICATION message per extracted question
// from a completed prompt's result, per spec.md §4.8 ("Each question
// becomes a CLARIFICATION message with role=ASSISTANT, context={promptId,
// relatedToResult}").
func RaiseQuestions(ctx context.Context, log *conversation.Log, sessionID, promptID, resultText string) ([]*types.ConversationMessage, error) {
	if !NeedsClarification(resultText) {
		return nil, nil
	}

	questions := ExtractQuestions(resultText)
	out := make([]*types.ConversationMessage, 0, len(questions))
	for _, q := range questions {
		msg, err := log.Append(ctx, sessionID, types.MessageClarification, types.RoleAssistant, q,
			map[string]any{"promptId": promptID, "relatedToResult": true}, "")
		if err != nil {
			return nil, fmt.Errorf("clarify: raising question: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// Respond appends a child USER CLARIFICATION reply, resolving the pending
// clarification identified by clarificationID.
func Respond(ctx context.Context, log *conversation.Log, sessionID, clarificationID, text string) (*types.ConversationMessage, error) {
	return log.Append(ctx, sessionID, types.MessageClarification, types.RoleUser, text, nil, clarificationID)
}

// MarkResolved appends an operator-initiated SYSTEM CLARIFICATION marker
// for each of the given clarification ids, per spec.md §4.8's
// markClarificationsResolved.
func MarkResolved(ctx context.Context, log *conversation.Log, sessionID string, clarificationIDs []string) error {
	for _, id := range clarificationIDs {
		if _, err := log.Append(ctx, sessionID, types.MessageClarification, types.RoleSystem, "resolved",
			map[string]any{"resolved": true}, id); err != nil {
			return fmt.Errorf("clarify: marking %q resolved: %w", id, err)
		}
	}
	return nil
}

// HasPending reports whether the session has any unresolved clarification,
// the gate that keeps a session out of COMPLETED per spec.md §4.8.
func HasPending(ctx context.Context, log *conversation.Log, sessionID string) (bool, error) {
	pending, err := log.PendingClarifications(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return len(pending) > 0, nil
}

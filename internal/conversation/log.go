// Package conversation implements the Conversation Log: an append-only
// history of messages scoped to a Session, per spec.md §4.3.
package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/docwizard/engine/internal/storage"
	"github.com/docwizard/engine/pkg/types"
)

// Log is the Conversation Log.
type Log struct {
	durable *storage.Durable
}

// New creates a Conversation Log over the given durable tier.
func New(durable *storage.Durable) *Log {
	return &Log{durable: durable}
}

// Append writes a new message with the next monotonic sequence number for
// its session and returns the stored message.
func (l *Log) Append(ctx context.Context, sessionID string, msgType types.MessageType, role types.MessageRole, content string, msgCtx map[string]any, parentID string) (*types.ConversationMessage, error) {
	tx, err := l.durable.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var maxSeq sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(sequence) FROM conversation_messages WHERE session_id = ?`, sessionID).Scan(&maxSeq); err != nil {
		return nil, fmt.Errorf("max sequence: %w", err)
	}

	ctxJSON, err := json.Marshal(msgCtx)
	if err != nil {
		return nil, err
	}

	msg := &types.ConversationMessage{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		Type:      msgType,
		Role:      role,
		Content:   content,
		Context:   msgCtx,
		ParentID:  parentID,
		Sequence:  maxSeq.Int64 + 1,
		CreatedAt: time.Now().UnixMilli(),
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, session_id, type, role, content, context, parent_id, sequence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, string(msg.Type), string(msg.Role), msg.Content, string(ctxJSON),
		nullStr(msg.ParentID), msg.Sequence, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListBySession returns every message for a session ordered by sequence.
func (l *Log) ListBySession(ctx context.Context, sessionID string) ([]*types.ConversationMessage, error) {
	rows, err := l.durable.Conn().QueryContext(ctx,
		`SELECT id, session_id, type, role, content, context, parent_id, sequence, created_at
		 FROM conversation_messages WHERE session_id = ? ORDER BY sequence ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.ConversationMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Children returns every message whose parentID is the given message id,
// ordered by sequence — used by types.IsPendingClarification.
func (l *Log) Children(ctx context.Context, parentID string) ([]*types.ConversationMessage, error) {
	rows, err := l.durable.Conn().QueryContext(ctx,
		`SELECT id, session_id, type, role, content, context, parent_id, sequence, created_at
		 FROM conversation_messages WHERE parent_id = ? ORDER BY sequence ASC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.ConversationMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// PendingClarifications returns every CLARIFICATION message in a session
// still awaiting a reply, per types.IsPendingClarification's invariant.
func (l *Log) PendingClarifications(ctx context.Context, sessionID string) ([]*types.ConversationMessage, error) {
	all, err := l.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var pending []*types.ConversationMessage
	for _, msg := range all {
		if msg.Type != types.MessageClarification || msg.Role != types.RoleAssistant {
			continue
		}
		children, err := l.Children(ctx, msg.ID)
		if err != nil {
			return nil, err
		}
		if types.IsPendingClarification(msg, children) {
			pending = append(pending, msg)
		}
	}
	return pending, nil
}

func scanMessage(rows *sql.Rows) (*types.ConversationMessage, error) {
	var msg types.ConversationMessage
	var msgType, role, ctxJSON string
	var parentID sql.NullString

	if err := rows.Scan(&msg.ID, &msg.SessionID, &msgType, &role, &msg.Content, &ctxJSON,
		&parentID, &msg.Sequence, &msg.CreatedAt); err != nil {
		return nil, err
	}

	msg.Type = types.MessageType(msgType)
	msg.Role = types.MessageRole(role)
	msg.ParentID = parentID.String
	if ctxJSON != "" && ctxJSON != "null" {
		if err := json.Unmarshal([]byte(ctxJSON), &msg.Context); err != nil {
			return nil, err
		}
	}
	return &msg, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

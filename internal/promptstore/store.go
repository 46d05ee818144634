// Package promptstore implements the Prompt Store: CRUD over Prompts
// scoped to a Session, per spec.md §4.2.
package promptstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/docwizard/engine/internal/storage"
	"github.com/docwizard/engine/pkg/types"
)

// Store is the Prompt Store, durable-only: prompts are read far less
// often per-item than sessions, and their lifecycle already lives in
// sqlite rows the Scheduler and Executor update directly.
type Store struct {
	durable *storage.Durable
}

// New creates a Prompt Store over the given durable tier.
func New(durable *storage.Durable) *Store {
	return &Store{durable: durable}
}

// CreatePrompts validates targeting for every prompt, assigns
// executionOrder = 1-based index after sorting by (priority ascending,
// submission order ascending), and writes all prompts as PENDING in one
// transaction. The whole batch fails atomically on any validation error.
func (s *Store) CreatePrompts(ctx context.Context, sessionID string, drafts []*types.Prompt) ([]*types.Prompt, error) {
	for i, p := range drafts {
		p.SubmissionSeq = i
		if err := p.ValidateTargeting(); err != nil {
			return nil, fmt.Errorf("prompt %d: %w", i, err)
		}
	}

	ordered := make([]*types.Prompt, len(drafts))
	copy(ordered, drafts)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].SubmissionSeq < ordered[j].SubmissionSeq
	})

	now := time.Now().UnixMilli()
	tx, err := s.durable.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for i, p := range ordered {
		p.ID = ulid.Make().String()
		p.SessionID = sessionID
		p.Status = types.PromptPending
		p.ExecutionOrder = i + 1
		p.CreatedAt = now

		var lineStart, lineEnd sql.NullInt64
		if p.TargetLines != nil {
			lineStart = sql.NullInt64{Int64: int64(p.TargetLines.Start), Valid: true}
			lineEnd = sql.NullInt64{Int64: int64(p.TargetLines.End), Valid: true}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO prompts (id, session_id, content, priority, target_type, target_file_id,
				target_line_start, target_line_end, target_section, status, execution_order,
				submission_seq, retry_of, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.SessionID, p.Content, p.Priority, string(p.TargetType), nullStr(p.TargetFileID),
			lineStart, lineEnd, nullStr(p.TargetSection), string(p.Status), p.ExecutionOrder,
			p.SubmissionSeq, nullStr(p.RetryOf), p.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert prompt %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ordered, nil
}

// GetPrompt loads one prompt by id.
func (s *Store) GetPrompt(ctx context.Context, id string) (*types.Prompt, error) {
	row := s.durable.Conn().QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	return scanPrompt(row)
}

// ListBySession returns all prompts for a session ordered by executionOrder.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]*types.Prompt, error) {
	rows, err := s.durable.Conn().QueryContext(ctx,
		selectColumns+` WHERE session_id = ? ORDER BY execution_order ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CompletedBelowPriority returns, ordered ascending by priority then
// executionOrder, every COMPLETED prompt (with its result text) in sessionID
// with priority strictly less than p. This is the exact "previous results"
// context-monotonicity contract of spec.md §8 property 4.
func (s *Store) CompletedBelowPriority(ctx context.Context, sessionID string, priority int) ([]*types.Prompt, error) {
	rows, err := s.durable.Conn().QueryContext(ctx,
		selectColumns+` WHERE session_id = ? AND priority < ? AND status = ? ORDER BY priority ASC, execution_order ASC`,
		sessionID, priority, string(types.PromptCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a prompt's status, optionally stamping
// startedAt/completedAt depending on the new status.
func (s *Store) UpdateStatus(ctx context.Context, id string, status types.PromptStatus) error {
	now := time.Now().UnixMilli()
	switch status {
	case types.PromptProcessing:
		_, err := s.durable.Conn().ExecContext(ctx,
			`UPDATE prompts SET status = ?, started_at = ? WHERE id = ?`, string(status), now, id)
		return err
	case types.PromptCompleted, types.PromptFailed, types.PromptSkipped:
		_, err := s.durable.Conn().ExecContext(ctx,
			`UPDATE prompts SET status = ?, completed_at = ? WHERE id = ?`, string(status), now, id)
		return err
	default:
		_, err := s.durable.Conn().ExecContext(ctx, `UPDATE prompts SET status = ? WHERE id = ?`, string(status), id)
		return err
	}
}

// SetResult marks a prompt COMPLETED with the given result text.
func (s *Store) SetResult(ctx context.Context, id, result string) error {
	_, err := s.durable.Conn().ExecContext(ctx,
		`UPDATE prompts SET status = ?, result = ?, completed_at = ? WHERE id = ?`,
		string(types.PromptCompleted), result, time.Now().UnixMilli(), id)
	return err
}

// SetFailed marks a prompt FAILED with an error message.
func (s *Store) SetFailed(ctx context.Context, id, errMsg string) error {
	_, err := s.durable.Conn().ExecContext(ctx,
		`UPDATE prompts SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(types.PromptFailed), errMsg, time.Now().UnixMilli(), id)
	return err
}

// Skip marks a prompt SKIPPED. Per spec.md §9 open question 4, this status
// is reserved for operator-initiated skips; the engine never drives it
// automatically.
func (s *Store) Skip(ctx context.Context, id, reason string) error {
	_, err := s.durable.Conn().ExecContext(ctx,
		`UPDATE prompts SET status = ?, skip_reason = ?, completed_at = ? WHERE id = ?`,
		string(types.PromptSkipped), reason, time.Now().UnixMilli(), id)
	return err
}

// ResetToPending resets every prompt in a session back to PENDING, used by
// the REGENERATE result action (spec.md §4.9 end-to-end scenario).
func (s *Store) ResetToPending(ctx context.Context, sessionID string) ([]*types.Prompt, error) {
	if _, err := s.durable.Conn().ExecContext(ctx,
		`UPDATE prompts SET status = ?, result = NULL, error = NULL, started_at = NULL, completed_at = NULL
		 WHERE session_id = ?`, string(types.PromptPending), sessionID); err != nil {
		return nil, err
	}
	return s.ListBySession(ctx, sessionID)
}

const selectColumns = `SELECT id, session_id, content, priority, target_type, target_file_id,
	target_line_start, target_line_end, target_section, status, execution_order, submission_seq,
	result, error, skip_reason, retry_of, created_at, started_at, completed_at FROM prompts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrompt(row rowScanner) (*types.Prompt, error) {
	var p types.Prompt
	var targetType, status string
	var targetFileID, targetSection, result, errText, skipReason, retryOf sql.NullString
	var lineStart, lineEnd sql.NullInt64
	var startedAt, completedAt sql.NullInt64

	if err := row.Scan(&p.ID, &p.SessionID, &p.Content, &p.Priority, &targetType, &targetFileID,
		&lineStart, &lineEnd, &targetSection, &status, &p.ExecutionOrder, &p.SubmissionSeq,
		&result, &errText, &skipReason, &retryOf, &p.CreatedAt, &startedAt, &completedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	p.TargetType = types.TargetType(targetType)
	p.Status = types.PromptStatus(status)
	p.TargetFileID = targetFileID.String
	p.TargetSection = targetSection.String
	p.Result = result.String
	p.Error = errText.String
	p.SkipReason = skipReason.String
	p.RetryOf = retryOf.String
	p.StartedAt = startedAt.Int64
	p.CompletedAt = completedAt.Int64
	if lineStart.Valid && lineEnd.Valid {
		p.TargetLines = &types.LineRange{Start: int(lineStart.Int64), End: int(lineEnd.Int64)}
	}
	return &p, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

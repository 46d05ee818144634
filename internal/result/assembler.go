// Package result implements the Result Assembler: combining per-chunk
// executor outputs into one versioned artifact per spec.md §4.9, plus the
// CONFIRM/MODIFY/REGENERATE lifecycle actions.
package result

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/yuin/goldmark"

	"github.com/docwizard/engine/internal/storage"
	"github.com/docwizard/engine/pkg/types"
)

var dmp = diffmatchpatch.New()

// renderMarkdown validates content as markdown by rendering it through
// goldmark, discarding the HTML output — a Result whose content goldmark
// can't parse never reaches the durable tier.
func renderMarkdown(content string) error {
	var discard strings.Builder
	if err := goldmark.Convert([]byte(content), &discard); err != nil {
		return fmt.Errorf("render result content as markdown: %w", err)
	}
	return nil
}

// summarizeDiff produces a compact unified-style summary of what changed
// between two Result versions, for Metadata.DiffSummary.
func summarizeDiff(before, after string) string {
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}

// Assembler persists Results to the durable tier.
type Assembler struct {
	durable *storage.Durable
}

// New creates a Result Assembler over the given durable tier.
func New(durable *storage.Durable) *Assembler {
	return &Assembler{durable: durable}
}

// FileOutput is one file's combined chunk output within a per-file plan.
type FileOutput struct {
	Filename string
	Output   string
}

// CombineFiles concatenates per-file outputs as
// "## {filename}\n\n{output}" separated by "\n\n---\n\n", preserving file
// order, per spec.md §4.9.
func CombineFiles(outputs []FileOutput) string {
	parts := make([]string, 0, len(outputs))
	for _, o := range outputs {
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", o.Filename, o.Output))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// CombineChunks concatenates sub-chunk outputs within a single file as
// "### Část {n}\n\n{output}" separated by "\n\n", in chunk order. The
// heading text is a literal contract, not a translation choice.
func CombineChunks(outputs []string) string {
	parts := make([]string, 0, len(outputs))
	for i, o := range outputs {
		parts = append(parts, fmt.Sprintf("### Část %d\n\n%s", i+1, o))
	}
	return strings.Join(parts, "\n\n")
}

// Persist writes a new Result version for the session, version =
// max(existingVersions)+1 (first = 1), status=PENDING_CONFIRMATION.
func (a *Assembler) Persist(ctx context.Context, sessionID, content string, promptCount int, generatedAt int64) (*types.Result, error) {
	if err := renderMarkdown(content); err != nil {
		return nil, err
	}

	tx, err := a.durable.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var maxVersion sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(version) FROM results WHERE session_id = ?`, sessionID).Scan(&maxVersion); err != nil {
		return nil, fmt.Errorf("max version: %w", err)
	}

	res := &types.Result{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		Version:   int(maxVersion.Int64) + 1,
		Content:   content,
		Format:    "markdown",
		Status:    types.ResultPendingConfirmation,
		Metadata:  types.ResultMetadata{PromptCount: promptCount, GeneratedAt: generatedAt},
		CreatedAt: generatedAt,
	}

	if err := insert(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// Confirm marks a Result CONFIRMED. It changes no other Result of the
// session: a version confirmed earlier keeps its CONFIRMED status, so
// several versions of one session can be CONFIRMED at the same time.
func (a *Assembler) Confirm(ctx context.Context, resultID string) error {
	_, err := a.durable.Conn().ExecContext(ctx,
		`UPDATE results SET status = ? WHERE id = ?`, string(types.ResultConfirmed), resultID)
	return err
}

// Modify creates a new Result version from direct-edit content, status
// MODIFIED, superseding the given source result for display defaults
// while leaving the source version retrievable.
func (a *Assembler) Modify(ctx context.Context, sessionID, sourceResultID, newContent string, generatedAt int64) (*types.Result, error) {
	if err := renderMarkdown(newContent); err != nil {
		return nil, err
	}

	tx, err := a.durable.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var maxVersion sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(version) FROM results WHERE session_id = ?`, sessionID).Scan(&maxVersion); err != nil {
		return nil, fmt.Errorf("max version: %w", err)
	}

	var priorContent string
	if err := tx.QueryRowContext(ctx,
		`SELECT content FROM results WHERE id = ?`, sourceResultID).Scan(&priorContent); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("load source result: %w", err)
	}

	res := &types.Result{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		Version:   int(maxVersion.Int64) + 1,
		Content:   newContent,
		Format:    "markdown",
		Status:    types.ResultModified,
		Metadata: types.ResultMetadata{
			GeneratedAt:  generatedAt,
			SourcePrompt: sourceResultID,
			DiffSummary:  summarizeDiff(priorContent, newContent),
		},
		CreatedAt: generatedAt,
	}
	if err := insert(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// Get retrieves a specific Result version for a session, or the latest
// version when version is 0.
func (a *Assembler) Get(ctx context.Context, sessionID string, version int) (*types.Result, error) {
	if version <= 0 {
		return scanResult(a.durable.Conn().QueryRowContext(ctx,
			selectColumns+` FROM results WHERE session_id = ? ORDER BY version DESC LIMIT 1`, sessionID))
	}
	return scanResult(a.durable.Conn().QueryRowContext(ctx,
		selectColumns+` FROM results WHERE session_id = ? AND version = ?`, sessionID, version))
}

// ListVersions returns every Result version for a session, oldest first.
func (a *Assembler) ListVersions(ctx context.Context, sessionID string) ([]*types.Result, error) {
	rows, err := a.durable.Conn().QueryContext(ctx,
		selectColumns+` FROM results WHERE session_id = ? ORDER BY version ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Result
	for rows.Next() {
		r, err := scanResultRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const selectColumns = `SELECT id, session_id, version, content, format, status, prompt_count, generated_at, source_prompt_id, diff_summary, created_at`

func insert(ctx context.Context, tx *sql.Tx, res *types.Result) error {
	var sourcePrompt sql.NullString
	if res.Metadata.SourcePrompt != "" {
		sourcePrompt = sql.NullString{String: res.Metadata.SourcePrompt, Valid: true}
	}
	var diffSummary sql.NullString
	if res.Metadata.DiffSummary != "" {
		diffSummary = sql.NullString{String: res.Metadata.DiffSummary, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO results (id, session_id, version, content, format, status, prompt_count, generated_at, source_prompt_id, diff_summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.SessionID, res.Version, res.Content, res.Format, string(res.Status),
		res.Metadata.PromptCount, res.Metadata.GeneratedAt, sourcePrompt, diffSummary, res.CreatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*types.Result, error) {
	return scan(row)
}

func scanResultRows(rows *sql.Rows) (*types.Result, error) {
	return scan(rows)
}

func scan(row rowScanner) (*types.Result, error) {
	var r types.Result
	var status string
	var sourcePrompt, diffSummary sql.NullString
	if err := row.Scan(&r.ID, &r.SessionID, &r.Version, &r.Content, &r.Format, &status,
		&r.Metadata.PromptCount, &r.Metadata.GeneratedAt, &sourcePrompt, &diffSummary, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Status = types.ResultStatus(status)
	r.Metadata.SourcePrompt = sourcePrompt.String
	r.Metadata.DiffSummary = diffSummary.String
	return &r, nil
}

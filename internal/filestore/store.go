// Package filestore persists the immutable File entities a Session owns:
// the external parser's output (plain text, sections, tables), recorded
// once on upload per spec.md §3/§6 and never rewritten.
package filestore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/docwizard/engine/internal/storage"
	"github.com/docwizard/engine/pkg/types"
)

// Store is the File store.
type Store struct {
	durable *storage.Durable
}

// New creates a File store over the given durable tier.
func New(durable *storage.Durable) *Store {
	return &Store{durable: durable}
}

// CreateFiles writes a batch of parsed files for a session and assigns
// each an id and, when the draft carries none, a Checksum (the sha256 of
// PlainText). Files are immutable once written; there is no update
// operation.
func (s *Store) CreateFiles(ctx context.Context, sessionID string, drafts []*types.File) ([]*types.File, error) {
	tx, err := s.durable.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]*types.File, 0, len(drafts))
	for _, d := range drafts {
		f := *d
		f.ID = ulid.Make().String()
		f.SessionID = sessionID
		if f.Checksum == "" {
			sum := sha256.Sum256([]byte(f.PlainText))
			f.Checksum = hex.EncodeToString(sum[:])
		}

		sectionsJSON, err := json.Marshal(f.Sections)
		if err != nil {
			return nil, err
		}
		tablesJSON, err := json.Marshal(f.Tables)
		if err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO files (id, session_id, original_name, mime_type, size, plain_text, sections, tables_json, token_estimate, checksum, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.SessionID, f.OriginalName, f.MimeType, f.Size, f.PlainText,
			string(sectionsJSON), string(tablesJSON), f.TokenEstimate, f.Checksum, f.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert file: %w", err)
		}
		out = append(out, &f)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBySession returns every File belonging to a session, in upload
// (insertion) order.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]*types.File, error) {
	rows, err := s.durable.Conn().QueryContext(ctx, selectColumns+
		` FROM files WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Get retrieves one File by id.
func (s *Store) Get(ctx context.Context, id string) (*types.File, error) {
	row := s.durable.Conn().QueryRowContext(ctx, selectColumns+` FROM files WHERE id = ?`, id)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return f, err
}

const selectColumns = `SELECT id, session_id, original_name, mime_type, size, plain_text, sections, tables_json, token_estimate, checksum, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*types.File, error) {
	var f types.File
	var mimeType, sectionsJSON, tablesJSON sql.NullString
	if err := row.Scan(&f.ID, &f.SessionID, &f.OriginalName, &mimeType, &f.Size, &f.PlainText,
		&sectionsJSON, &tablesJSON, &f.TokenEstimate, &f.Checksum, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.MimeType = mimeType.String
	if sectionsJSON.Valid && sectionsJSON.String != "" && sectionsJSON.String != "null" {
		if err := json.Unmarshal([]byte(sectionsJSON.String), &f.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections: %w", err)
		}
	}
	if tablesJSON.Valid && tablesJSON.String != "" && tablesJSON.String != "null" {
		if err := json.Unmarshal([]byte(tablesJSON.String), &f.Tables); err != nil {
			return nil, fmt.Errorf("unmarshal tables: %w", err)
		}
	}
	return &f, nil
}

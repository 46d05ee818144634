// Package sessionstore implements the Session Store: a two-tier read/write
// path over the hot cache (internal/storage.Storage) and the durable sqlite
// tier (internal/storage.Durable), per spec.md §4.1.
package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/docwizard/engine/internal/storage"
	"github.com/docwizard/engine/pkg/types"
)

var hotPath = func(id string) []string { return []string{"session", id} }

const activeSetPath0 = "sessions:active"

// Store is the Session Store.
type Store struct {
	hot         *storage.Storage
	durable     *storage.Durable
	ttl         time.Duration
	log         zerolog.Logger
	cleanupCron string
}

// New creates a Session Store bound to the given hot and durable tiers.
func New(hot *storage.Storage, durable *storage.Durable, sessionTTL time.Duration, log zerolog.Logger) *Store {
	return &Store{hot: hot, durable: durable, ttl: sessionTTL, log: log.With().Str("component", "sessionstore").Logger()}
}

// SetCleanupSchedule gates CleanupExpired on a cron expression in addition
// to however often the caller invokes it: a tick that arrives while expr
// isn't due is a no-op. Passing "" (the default) disables the gate so every
// call runs the sweep. Returns an error if expr doesn't parse as a valid
// five-field cron expression.
func (s *Store) SetCleanupSchedule(expr string) error {
	if expr == "" {
		s.cleanupCron = ""
		return nil
	}
	if _, err := gronx.NextTick(expr, true); err != nil {
		return fmt.Errorf("invalid cleanup cron expression %q: %w", expr, err)
	}
	s.cleanupCron = expr
	return nil
}

// CreateSession assigns an id, sets status=ACTIVE, computes expiry from the
// configured TTL, writes both tiers, and records the id in the active set.
func (s *Store) CreateSession(ctx context.Context, userID string, metadata map[string]any) (*types.Session, error) {
	now := time.Now()
	sess := &types.Session{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Status:    types.SessionActive,
		Metadata:  metadata,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(s.ttl).UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}

	if err := s.writeDurable(ctx, sess); err != nil {
		return nil, fmt.Errorf("write durable session: %w", err)
	}
	if err := s.hot.PutTTL(ctx, hotPath(sess.ID), sess, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("session", sess.ID).Msg("hot tier write failed, durable write succeeded")
	}
	if err := s.addToActiveSet(ctx, sess.ID); err != nil {
		s.log.Warn().Err(err).Msg("failed to add session to active set")
	}

	return sess, nil
}

// GetSession is hot-first: on a hot miss it loads from durable and refreshes
// the hot tier with the session's remaining TTL.
func (s *Store) GetSession(ctx context.Context, id string) (*types.Session, error) {
	var sess types.Session
	if err := s.hot.Get(ctx, hotPath(id), &sess); err == nil {
		return &sess, nil
	}

	row, err := s.readDurable(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	remaining := time.Until(time.UnixMilli(row.ExpiresAt))
	if remaining > 0 {
		if err := s.hot.PutTTL(ctx, hotPath(id), row, remaining); err != nil {
			s.log.Warn().Err(err).Str("session", id).Msg("hot tier refresh failed")
		}
	}
	return row, nil
}

// UpdateStatus writes the new status to both tiers if the transition is
// legal; it is a no-op (not an error) if from == to.
func (s *Store) UpdateStatus(ctx context.Context, id string, status types.SessionStatus) error {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session %s not found", id)
	}
	if !types.CanTransition(sess.Status, status) {
		return fmt.Errorf("illegal session transition %s -> %s", sess.Status, status)
	}

	sess.Status = status
	sess.UpdatedAt = time.Now().UnixMilli()

	if _, err := s.durable.Conn().ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), sess.UpdatedAt, id); err != nil {
		return fmt.Errorf("update durable status: %w", err)
	}

	remaining := time.Until(time.UnixMilli(sess.ExpiresAt))
	if remaining > 0 {
		_ = s.hot.PutTTL(ctx, hotPath(id), sess, remaining)
	}

	if status == types.SessionExpired {
		_ = s.removeFromActiveSet(ctx, id)
	}
	return nil
}

// Extend shifts a session's expiry forward by seconds and refreshes hot TTL.
func (s *Store) Extend(ctx context.Context, id string, seconds int) error {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session %s not found", id)
	}

	sess.ExpiresAt += int64(seconds) * 1000
	sess.UpdatedAt = time.Now().UnixMilli()

	if _, err := s.durable.Conn().ExecContext(ctx,
		`UPDATE sessions SET expires_at = ?, updated_at = ? WHERE id = ?`,
		sess.ExpiresAt, sess.UpdatedAt, id); err != nil {
		return fmt.Errorf("update durable expiry: %w", err)
	}

	remaining := time.Until(time.UnixMilli(sess.ExpiresAt))
	if remaining > 0 {
		_ = s.hot.PutTTL(ctx, hotPath(id), sess, remaining)
	}
	return nil
}

// Delete evicts hot keys for the session and its children, and marks the
// durable row EXPIRED without physically deleting it.
func (s *Store) Delete(ctx context.Context, id string) error {
	for _, suffix := range []string{"", ":files", ":prompts", ":conversations", ":result"} {
		_ = s.hot.Delete(ctx, []string{"session", id + suffix})
	}
	_ = s.removeFromActiveSet(ctx, id)

	_, err := s.durable.Conn().ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status != ?`,
		string(types.SessionExpired), time.Now().UnixMilli(), id, string(types.SessionExpired))
	return err
}

// CleanupExpired scans durable for rows past their expiry that are still
// ACTIVE or PROCESSING, and deletes each. Intended to run on a fixed
// interval (see internal/scheduler's cleanup ticker).
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	if s.cleanupCron != "" {
		due, err := gronx.IsDue(s.cleanupCron)
		if err != nil {
			return 0, fmt.Errorf("evaluate cleanup cron expression: %w", err)
		}
		if !due {
			return 0, nil
		}
	}

	now := time.Now().UnixMilli()
	rows, err := s.durable.Conn().QueryContext(ctx,
		`SELECT id FROM sessions WHERE expires_at < ? AND status IN (?, ?)`,
		now, string(types.SessionActive), string(types.SessionProcessing))
	if err != nil {
		return 0, fmt.Errorf("scan expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			s.log.Error().Err(err).Str("session", id).Msg("cleanup delete failed")
		}
	}
	return len(ids), nil
}

// GetActiveSessionCount returns the size of the hot-tier active-session set.
func (s *Store) GetActiveSessionCount(ctx context.Context) (int, error) {
	ids, err := s.activeSet(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *Store) activeSet(ctx context.Context) (map[string]bool, error) {
	set := make(map[string]bool)
	err := s.hot.Get(ctx, []string{activeSetPath0}, &set)
	if err == storage.ErrNotFound {
		return set, nil
	}
	return set, err
}

func (s *Store) addToActiveSet(ctx context.Context, id string) error {
	set, err := s.activeSet(ctx)
	if err != nil {
		return err
	}
	set[id] = true
	return s.hot.Put(ctx, []string{activeSetPath0}, set)
}

func (s *Store) removeFromActiveSet(ctx context.Context, id string) error {
	set, err := s.activeSet(ctx)
	if err != nil {
		return err
	}
	delete(set, id)
	return s.hot.Put(ctx, []string{activeSetPath0}, set)
}

func (s *Store) writeDurable(ctx context.Context, sess *types.Session) error {
	metadata, err := json.Marshal(sess.Metadata)
	if err != nil {
		return err
	}
	_, err = s.durable.Conn().ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, status, metadata, created_at, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, string(sess.Status), string(metadata), sess.CreatedAt, sess.ExpiresAt, sess.UpdatedAt)
	return err
}

func (s *Store) readDurable(ctx context.Context, id string) (*types.Session, error) {
	var sess types.Session
	var userID sql.NullString
	var metadata sql.NullString
	var status string

	err := s.durable.Conn().QueryRowContext(ctx,
		`SELECT id, user_id, status, metadata, created_at, expires_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &userID, &status, &metadata, &sess.CreatedAt, &sess.ExpiresAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sess.UserID = userID.String
	sess.Status = types.SessionStatus(status)
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &sess.Metadata); err != nil {
			return nil, err
		}
	}
	return &sess, nil
}

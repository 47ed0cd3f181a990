// Package store is the SQLite persistence layer. It uses modernc.org/sqlite
// for pure-Go, CGO-free database access; sessions round-trip through it so a
// conversation survives process restarts.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/normanking/attrangi/internal/engine"
)

//go:embed migrations/001_initial_schema.sql
var initialSchema string

// Store provides access to the SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates the database under dataDir and initializes the schema.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "companion.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer keeps SQLite happy under concurrent sessions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.initPragmas(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize pragmas: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// DB exposes the underlying handle for components that share the database,
// such as the embedding cache.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) initPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

// migrate runs the embedded schema. Idempotent.
func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(initialSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return tx.Commit()
}

// Health verifies the connection is alive.
func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Close flushes the WAL and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// SaveSession upserts the session row and appends any transcript messages
// not yet persisted, in one transaction.
func (s *Store) SaveSession(ctx context.Context, sess *engine.Session) error {
	signals, err := json.Marshal(sess.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, signals, stage, mode, turn_state, lock_stage, report_offered, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			signals        = excluded.signals,
			stage          = excluded.stage,
			mode           = excluded.mode,
			turn_state     = excluded.turn_state,
			lock_stage     = excluded.lock_stage,
			report_offered = excluded.report_offered,
			updated_at     = excluded.updated_at
	`, sess.ID, string(signals), sess.Stage, sess.Mode, sess.TurnState,
		boolToInt(sess.LockStage), boolToInt(sess.ReportOffered),
		sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	var persisted int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sess.ID).Scan(&persisted); err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	// A reset session has fewer messages than the stored transcript; start
	// the transcript over.
	if persisted > len(sess.Conversation) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sess.ID); err != nil {
			return fmt.Errorf("clear messages: %w", err)
		}
		persisted = 0
	}
	now := time.Now().UTC()
	for _, msg := range sess.Conversation[persisted:] {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (session_id, role, content, created_at)
			VALUES (?, ?, ?, ?)
		`, sess.ID, msg.Role, msg.Content, now); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// LoadSession rehydrates a session and its transcript. Returns
// sql.ErrNoRows when the id is unknown.
func (s *Store) LoadSession(ctx context.Context, id string) (*engine.Session, error) {
	sess := &engine.Session{ID: id}
	var signalsJSON string
	var lockStage, reportOffered int

	err := s.db.QueryRowContext(ctx, `
		SELECT signals, stage, mode, turn_state, lock_stage, report_offered, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(&signalsJSON, &sess.Stage, &sess.Mode, &sess.TurnState,
		&lockStage, &reportOffered, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	sess.Signals = engine.NewVector()
	if err := json.Unmarshal([]byte(signalsJSON), &sess.Signals); err != nil {
		return nil, fmt.Errorf("unmarshal signals: %w", err)
	}
	sess.LockStage = lockStage != 0
	sess.ReportOffered = reportOffered != 0

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM messages
		WHERE session_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg engine.Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		sess.Conversation = append(sess.Conversation, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return sess, nil
}

// DeleteSession removes a session, its transcript, and its summaries.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// ListSessions returns all session ids, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveSummary persists a generated report and returns its id.
func (s *Store) SaveSummary(ctx context.Context, sessionID, content string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries (id, session_id, content, created_at)
		VALUES (?, ?, ?, ?)
	`, id, sessionID, content, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("save summary: %w", err)
	}
	return id, nil
}

// LatestSummary returns the newest summary for a session, or sql.ErrNoRows.
func (s *Store) LatestSummary(ctx context.Context, sessionID string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `
		SELECT content FROM summaries
		WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, sessionID).Scan(&content)
	if err != nil {
		return "", fmt.Errorf("load summary: %w", err)
	}
	return content, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

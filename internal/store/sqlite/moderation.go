// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridkeeper Contributors

package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gridkeeper/gridkeeper/internal/store"
	gkerr "github.com/gridkeeper/gridkeeper/pkg/errors"
)

// Compile-time interface checks.
var (
	_ store.ModerationStore = (*ModerationStore)(nil)
	_ store.ChatStore       = (*chatStore)(nil)
	_ store.BanStore        = (*banStore)(nil)
	_ store.SettingStore    = (*settingStore)(nil)
	_ store.AuditStore      = (*auditStore)(nil)
)

// ModerationStore implements store.ModerationStore backed by a single
// SQLite database. Writers are serialized through one mutex shared by all
// sub-stores.
type ModerationStore struct {
	db       *sql.DB
	chats    *chatStore
	bans     *banStore
	settings *settingStore
	audit    *auditStore
}

// NewModerationStore opens (or creates) a SQLite database at dbPath and
// initialises the chats, bans, chat_settings and audit_log tables.
func NewModerationStore(dbPath string) (*ModerationStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "creating database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "opening moderation db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "pinging moderation db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "migrating moderation db: %w", err)
	}

	mu := &sync.Mutex{}
	return &ModerationStore{
		db:       db,
		chats:    &chatStore{db: db, mu: mu},
		bans:     &banStore{db: db, mu: mu},
		settings: &settingStore{db: db, mu: mu},
		audit:    &auditStore{db: db, mu: mu},
	}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS chats (
	chat_id INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS bans (
	user_id INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS chat_settings (
	chat_id INTEGER PRIMARY KEY,
	silence INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS audit_log (
	id        TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	action    TEXT NOT NULL DEFAULT '',
	actor_id  INTEGER NOT NULL DEFAULT 0,
	chat_id   INTEGER NOT NULL DEFAULT 0,
	target_id INTEGER NOT NULL DEFAULT 0,
	result    TEXT NOT NULL DEFAULT '',
	details   TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_log_action    ON audit_log(action);
CREATE INDEX IF NOT EXISTS idx_audit_log_target    ON audit_log(target_id);
`
	_, err := db.Exec(ddl)
	return err
}

// Chats returns the ChatStore sub-store.
func (m *ModerationStore) Chats() store.ChatStore { return m.chats }

// Bans returns the BanStore sub-store.
func (m *ModerationStore) Bans() store.BanStore { return m.bans }

// Settings returns the SettingStore sub-store.
func (m *ModerationStore) Settings() store.SettingStore { return m.settings }

// AuditLog returns the AuditStore sub-store.
func (m *ModerationStore) AuditLog() store.AuditStore { return m.audit }

// Close closes the underlying database connection.
func (m *ModerationStore) Close() error { return m.db.Close() }

// ---------- chatStore ----------

type chatStore struct {
	db *sql.DB
	mu *sync.Mutex
}

func (s *chatStore) Add(ctx context.Context, chatID int64) (bool, error) {
	if err := validateID("chat", chatID); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO chats (chat_id) VALUES (?)`, chatID)
	if err != nil {
		return false, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "inserting chat %d: %w", chatID, err)
	}
	return affected(res, "inserting chat")
}

func (s *chatStore) Remove(ctx context.Context, chatID int64) (bool, error) {
	if err := validateID("chat", chatID); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "beginning tx for chat %d: %w", chatID, err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "deleting chat %d: %w", chatID, err)
	}
	removed, err := affected(res, "deleting chat")
	if err != nil {
		return false, err
	}
	// Settings of a chat outside the grid are kept.
	if !removed {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_settings WHERE chat_id = ?`, chatID); err != nil {
		return false, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "deleting settings of chat %d: %w", chatID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "committing removal of chat %d: %w", chatID, err)
	}
	return removed, nil
}

func (s *chatStore) Has(ctx context.Context, chatID int64) (bool, error) {
	return exists(ctx, s.db, `SELECT 1 FROM chats WHERE chat_id = ?`, chatID, "chat")
}

func (s *chatStore) List(ctx context.Context) ([]int64, error) {
	return listIDs(ctx, s.db, `SELECT chat_id FROM chats ORDER BY chat_id ASC`, "chats")
}

func (s *chatStore) Count(ctx context.Context) (int, error) {
	return count(ctx, s.db, `SELECT COUNT(*) FROM chats`, "chats")
}

// ---------- banStore ----------

type banStore struct {
	db *sql.DB
	mu *sync.Mutex
}

func (s *banStore) Add(ctx context.Context, userID int64) (bool, error) {
	if err := validateID("user", userID); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO bans (user_id) VALUES (?)`, userID)
	if err != nil {
		return false, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "inserting ban %d: %w", userID, err)
	}
	return affected(res, "inserting ban")
}

func (s *banStore) Remove(ctx context.Context, userID int64) (bool, error) {
	if err := validateID("user", userID); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM bans WHERE user_id = ?`, userID)
	if err != nil {
		return false, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "deleting ban %d: %w", userID, err)
	}
	return affected(res, "deleting ban")
}

func (s *banStore) IsBanned(ctx context.Context, userID int64) (bool, error) {
	return exists(ctx, s.db, `SELECT 1 FROM bans WHERE user_id = ?`, userID, "ban")
}

func (s *banStore) List(ctx context.Context) ([]int64, error) {
	return listIDs(ctx, s.db, `SELECT user_id FROM bans ORDER BY user_id ASC`, "bans")
}

func (s *banStore) Count(ctx context.Context) (int, error) {
	return count(ctx, s.db, `SELECT COUNT(*) FROM bans`, "bans")
}

// ---------- settingStore ----------

type settingStore struct {
	db *sql.DB
	mu *sync.Mutex
}

func (s *settingStore) SetSilence(ctx context.Context, chatID int64, enabled bool) error {
	if err := validateID("chat", chatID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	const q = `INSERT INTO chat_settings (chat_id, silence) VALUES (?, ?)
ON CONFLICT(chat_id) DO UPDATE SET silence = excluded.silence`
	if _, err := s.db.ExecContext(ctx, q, chatID, boolToInt(enabled)); err != nil {
		return gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "upserting silence for chat %d: %w", chatID, err)
	}
	return nil
}

func (s *settingStore) GetSilence(ctx context.Context, chatID int64) (bool, error) {
	var silence int
	err := s.db.QueryRowContext(ctx, `SELECT silence FROM chat_settings WHERE chat_id = ?`, chatID).Scan(&silence)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "reading silence for chat %d: %w", chatID, err)
	}
	return silence != 0, nil
}

// ---------- helpers ----------

func validateID(kind string, id int64) error {
	if id <= 0 {
		return gkerr.Errorf(gkerr.CodeStoreInvalidInput, "%s id must be positive, got %d", kind, id)
	}
	return nil
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "%s: rows affected: %w", op, err)
	}
	return n > 0, nil
}

func exists(ctx context.Context, db *sql.DB, q string, id int64, kind string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, q, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "looking up %s %d: %w", kind, id, err)
	}
	return true, nil
}

func listIDs(ctx context.Context, db *sql.DB, q, kind string) ([]int64, error) {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "listing %s: %w", kind, err)
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "scanning %s row: %w", kind, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "iterating %s: %w", kind, err)
	}
	return ids, nil
}

func count(ctx context.Context, db *sql.DB, q, kind string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, gkerr.Errorf(gkerr.CodeStoreDatabaseFailure, "counting %s: %w", kind, err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// ParseTime deserialises a time string stored in the database.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

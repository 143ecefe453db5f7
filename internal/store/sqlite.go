// ABOUTME: SQLite persistence for users and chat messages using modernc.org/sqlite
// ABOUTME: Implements users.Store and chat.MessageStore with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/findry/findry/internal/chat"
	"github.com/findry/findry/internal/users"
)

// SQLiteStore backs the user directory and the message store.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path. The schema
// is created if it doesn't exist; parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist. Message
// times are stored as unix nanoseconds so ordering stays exact at
// sub-second resolution.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			description   TEXT NOT NULL DEFAULT '',
			password_hash BLOB NOT NULL,
			registered_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id      TEXT PRIMARY KEY,
			sender  TEXT NOT NULL REFERENCES users(id),
			target  TEXT NOT NULL REFERENCES users(id),
			time_ns INTEGER NOT NULL,
			text    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_chat_messages_sender_time
			ON chat_messages(sender, time_ns);

		CREATE INDEX IF NOT EXISTS idx_chat_messages_target_time
			ON chat_messages(target, time_ns);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user. Returns users.ErrDuplicateUser when the
// name or email is already taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, user users.User) error {
	query := `
		INSERT INTO users (id, name, email, description, password_hash, registered_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID.String(),
		user.Name,
		user.Email,
		user.Description,
		user.PasswordHash,
		user.Registration.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return users.ErrDuplicateUser
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID, "name", user.Name)
	return nil
}

// GetUser retrieves a user by id. Returns users.ErrNotFound if absent.
func (s *SQLiteStore) GetUser(ctx context.Context, id uuid.UUID) (users.User, error) {
	query := `
		SELECT id, name, email, description, password_hash, registered_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id.String()))
}

// GetUserByName retrieves a user by unique name. Returns users.ErrNotFound
// if absent.
func (s *SQLiteStore) GetUserByName(ctx context.Context, name string) (users.User, error) {
	query := `
		SELECT id, name, email, description, password_hash, registered_at
		FROM users
		WHERE name = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, name))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (users.User, error) {
	var user users.User
	var idStr, registeredAtStr string

	err := row.Scan(
		&idStr,
		&user.Name,
		&user.Email,
		&user.Description,
		&user.PasswordHash,
		&registeredAtStr,
	)
	if err == sql.ErrNoRows {
		return users.User{}, users.ErrNotFound
	}
	if err != nil {
		return users.User{}, fmt.Errorf("querying user: %w", err)
	}

	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return users.User{}, fmt.Errorf("parsing user id: %w", err)
	}
	user.Registration, err = time.Parse(time.RFC3339, registeredAtStr)
	if err != nil {
		return users.User{}, fmt.Errorf("parsing registered_at: %w", err)
	}
	return user, nil
}

// Append stores one chat message.
func (s *SQLiteStore) Append(ctx context.Context, msg chat.Message) error {
	query := `
		INSERT INTO chat_messages (id, sender, target, time_ns, text)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID.String(),
		msg.Sender.String(),
		msg.Target.String(),
		msg.Time.UnixNano(),
		msg.Text,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("appended message", "id", msg.ID, "sender", msg.Sender, "target", msg.Target)
	return nil
}

// ListBetween returns the full message history between two users, oldest
// first, regardless of direction.
func (s *SQLiteStore) ListBetween(ctx context.Context, a, b uuid.UUID) ([]chat.Message, error) {
	query := `
		SELECT id, sender, target, time_ns, text
		FROM chat_messages
		WHERE (sender = ? AND target = ?) OR (sender = ? AND target = ?)
		ORDER BY time_ns ASC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, a.String(), b.String(), b.String(), a.String())
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListLatestPerCounterparty returns the newest message per distinct
// conversation partner of the user. Candidates come back newest first;
// the reduction that merges both directions of a conversation into one
// row is the order-independent aggregation in the chat package.
func (s *SQLiteStore) ListLatestPerCounterparty(ctx context.Context, user uuid.UUID) ([]chat.Message, error) {
	query := `
		SELECT id, sender, target, time_ns, text
		FROM chat_messages
		WHERE sender = ? OR target = ?
		ORDER BY time_ns DESC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, user.String(), user.String())
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	return chat.LatestPerConversation(msgs), nil
}

func scanMessages(rows *sql.Rows) ([]chat.Message, error) {
	var msgs []chat.Message
	for rows.Next() {
		var msg chat.Message
		var idStr, senderStr, targetStr string
		var timeNS int64

		if err := rows.Scan(&idStr, &senderStr, &targetStr, &timeNS, &msg.Text); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}

		var err error
		if msg.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parsing message id: %w", err)
		}
		if msg.Sender, err = uuid.Parse(senderStr); err != nil {
			return nil, fmt.Errorf("parsing sender id: %w", err)
		}
		if msg.Target, err = uuid.Parse(targetStr); err != nil {
			return nil, fmt.Errorf("parsing target id: %w", err)
		}
		msg.Time = time.Unix(0, timeNS).UTC()

		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voiceteller/voiceteller/internal/domain"
)

// SQLiteSessionStore implements agent.SessionStore backed by SQLite.
type SQLiteSessionStore struct {
	db *DB
}

// NewSQLiteSessionStore creates a session store using the given database.
func NewSQLiteSessionStore(db *DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

// GetOrCreate finds an existing session by key or creates a new one.
func (s *SQLiteSessionStore) GetOrCreate(key domain.SessionKey) (*domain.Session, error) {
	keyStr := key.String()

	var sess domain.Session
	var createdAt, updatedAt string
	err := s.db.sql.QueryRow(
		`SELECT id, channel, caller, created_at, updated_at
		 FROM sessions WHERE key_str = ?`, keyStr,
	).Scan(&sess.ID, &sess.Key.Channel, &sess.Key.Caller, &createdAt, &updatedAt)

	if err == nil {
		sess.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		sess.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
		msgs, err := s.History(sess.ID)
		if err != nil {
			return nil, err
		}
		sess.Messages = msgs
		return &sess, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("looking up session %s: %w", keyStr, err)
	}

	sess = domain.Session{
		ID:        uuid.New().String(),
		Key:       key,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err = s.db.sql.Exec(
		`INSERT INTO sessions (id, key_str, channel, caller, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, keyStr, key.Channel, key.Caller,
		sess.CreatedAt.Format(time.DateTime), sess.UpdatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session %s: %w", keyStr, err)
	}

	return &sess, nil
}

// Get returns a session by ID with its messages attached.
func (s *SQLiteSessionStore) Get(id string) (*domain.Session, error) {
	var sess domain.Session
	var createdAt, updatedAt string

	err := s.db.sql.QueryRow(
		`SELECT id, channel, caller, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Key.Channel, &sess.Key.Caller, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	sess.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	sess.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)

	msgs, err := s.History(id)
	if err != nil {
		return nil, err
	}
	sess.Messages = msgs
	return &sess, nil
}

// Append adds a message to a session.
func (s *SQLiteSessionStore) Append(sessionID string, msg domain.Message) error {
	var toolCallsJSON sql.NullString
	if len(msg.ToolCalls) > 0 {
		data, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("encoding tool calls: %w", err)
		}
		toolCallsJSON = sql.NullString{String: string(data), Valid: true}
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.sql.Exec(
		`INSERT INTO messages (session_id, role, content, tool_name, tool_call_id, tool_calls, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, msg.Role, msg.Content, msg.ToolName, msg.ToolCallID,
		toolCallsJSON, ts.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("appending message to %s: %w", sessionID, err)
	}

	_, err = s.db.sql.Exec(
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().Format(time.DateTime), sessionID,
	)
	if err != nil {
		return fmt.Errorf("touching session %s: %w", sessionID, err)
	}
	return nil
}

// History returns the message history for a session in append order.
func (s *SQLiteSessionStore) History(sessionID string) ([]domain.Message, error) {
	rows, err := s.db.sql.Query(
		`SELECT role, content, tool_name, tool_call_id, tool_calls, timestamp
		 FROM messages WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		var ts string
		var toolCallsJSON sql.NullString

		if err := rows.Scan(&msg.Role, &msg.Content, &msg.ToolName, &msg.ToolCallID, &toolCallsJSON, &ts); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Timestamp, _ = time.Parse(time.DateTime, ts)

		if toolCallsJSON.Valid && toolCallsJSON.String != "" {
			if err := json.Unmarshal([]byte(toolCallsJSON.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("decoding tool calls: %w", err)
			}
		}

		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// List returns all sessions without their messages, most recent first.
func (s *SQLiteSessionStore) List() ([]domain.Session, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, channel, caller, created_at, updated_at
		 FROM sessions ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var sess domain.Session
		var createdAt, updatedAt string
		if err := rows.Scan(&sess.ID, &sess.Key.Channel, &sess.Key.Caller, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sess.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		sess.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

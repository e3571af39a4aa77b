package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations. The messages
// table is append-only; there is no update or delete path for dialogue
// history.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create sessions and messages",
		SQL: `
			CREATE TABLE sessions (
				id          TEXT PRIMARY KEY,
				key_str     TEXT NOT NULL,
				channel     TEXT NOT NULL,
				caller      TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_sessions_key ON sessions (key_str);
			CREATE INDEX idx_sessions_channel ON sessions (channel);

			CREATE TABLE messages (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				role          TEXT NOT NULL,
				content       TEXT NOT NULL,
				tool_name     TEXT NOT NULL DEFAULT '',
				tool_call_id  TEXT NOT NULL DEFAULT '',
				tool_calls    TEXT,
				timestamp     TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_messages_session ON messages (session_id, id);
		`,
	},
}

package store

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiceteller/voiceteller/internal/agent"
	"github.com/voiceteller/voiceteller/internal/domain"
	"github.com/voiceteller/voiceteller/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.New(io.Discard, "silent", "json"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	db, err := Open(path, logging.New(io.Discard, "silent", "json"))
	require.NoError(t, err)
	defer db.Close()
}

func TestMigrationsIdempotent(t *testing.T) {
	db := openTestDB(t)
	// A second run sees every migration already applied.
	require.NoError(t, db.migrate())

	var count int
	require.NoError(t, db.SQL().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrations), count)
}

func TestSessionStoreImplementsInterface(t *testing.T) {
	var _ agent.SessionStore = (*SQLiteSessionStore)(nil)
}

func TestSessionGetOrCreate(t *testing.T) {
	store := NewSQLiteSessionStore(openTestDB(t))
	key := domain.SessionKey{Channel: "local", Caller: "console"}

	first, err := store.GetOrCreate(key)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, key, first.Key)

	second, err := store.GetOrCreate(key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := store.GetOrCreate(domain.SessionKey{Channel: "gateway", Caller: "c1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestAppendAndHistoryRoundTrip(t *testing.T) {
	store := NewSQLiteSessionStore(openTestDB(t))
	sess, err := store.GetOrCreate(domain.SessionKey{Channel: "test"})
	require.NoError(t, err)

	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "check my balance"},
		{
			Role: domain.RoleAssistant,
			ToolCalls: []domain.ToolCall{{
				ID: "tc-1", Name: "getAccountBalance", Input: `{"accountId":"acc-1234"}`,
			}},
		},
		{
			Role:       domain.RoleTool,
			ToolName:   "getAccountBalance",
			ToolCallID: "tc-1",
			Content:    `{"success":true,"balance":500}`,
		},
		{Role: domain.RoleAssistant, Content: "You have 500 USD."},
	}
	for _, m := range msgs {
		require.NoError(t, store.Append(sess.ID, m))
	}

	history, err := store.History(sess.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Equal(t, "check my balance", history[0].Content)

	require.Len(t, history[1].ToolCalls, 1)
	assert.Equal(t, "tc-1", history[1].ToolCalls[0].ID)
	assert.Equal(t, "getAccountBalance", history[1].ToolCalls[0].Name)
	assert.Equal(t, `{"accountId":"acc-1234"}`, history[1].ToolCalls[0].Input)

	assert.Equal(t, "getAccountBalance", history[2].ToolName)
	assert.Equal(t, "tc-1", history[2].ToolCallID)
	assert.Equal(t, `{"success":true,"balance":500}`, history[2].Content)

	assert.Equal(t, "You have 500 USD.", history[3].Content)
}

func TestGetAttachesMessages(t *testing.T) {
	store := NewSQLiteSessionStore(openTestDB(t))
	sess, err := store.GetOrCreate(domain.SessionKey{Channel: "test"})
	require.NoError(t, err)

	require.NoError(t, store.Append(sess.ID, domain.Message{Role: domain.RoleUser, Content: "hello"}))

	loaded, err := store.Get(sess.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, "hello", loaded.Messages[0].Content)

	_, err = store.Get("missing")
	assert.Error(t, err)
}

func TestListSessions(t *testing.T) {
	store := NewSQLiteSessionStore(openTestDB(t))
	a, _ := store.GetOrCreate(domain.SessionKey{Channel: "local"})
	b, _ := store.GetOrCreate(domain.SessionKey{Channel: "gateway", Caller: "c1"})

	sessions, err := store.List()
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	ids := []string{sessions[0].ID, sessions[1].ID}
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
	assert.Empty(t, sessions[0].Messages)
}

func TestHistoryPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	log := logging.New(io.Discard, "silent", "json")

	db, err := Open(path, log)
	require.NoError(t, err)
	store := NewSQLiteSessionStore(db)
	sess, err := store.GetOrCreate(domain.SessionKey{Channel: "local"})
	require.NoError(t, err)
	require.NoError(t, store.Append(sess.ID, domain.Message{Role: domain.RoleUser, Content: "persist me"}))
	require.NoError(t, db.Close())

	db, err = Open(path, log)
	require.NoError(t, err)
	defer db.Close()

	store = NewSQLiteSessionStore(db)
	reopened, err := store.GetOrCreate(domain.SessionKey{Channel: "local"})
	require.NoError(t, err)
	assert.Equal(t, sess.ID, reopened.ID)
	require.Len(t, reopened.Messages, 1)
	assert.Equal(t, "persist me", reopened.Messages[0].Content)
}

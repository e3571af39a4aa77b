package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiceteller/voiceteller/internal/domain"
)

func TestMemoryStoreGetOrCreate(t *testing.T) {
	store := NewMemorySessionStore()
	key := domain.SessionKey{Channel: "local", Caller: "console"}

	first, err := store.GetOrCreate(key)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, key, first.Key)

	second, err := store.GetOrCreate(key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := store.GetOrCreate(domain.SessionKey{Channel: "gateway", Caller: "client-1"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestMemoryStoreAppendAndHistory(t *testing.T) {
	store := NewMemorySessionStore()
	session, err := store.GetOrCreate(domain.SessionKey{Channel: "test"})
	require.NoError(t, err)

	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "check balance"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{Name: "getAccountBalance", Input: `{"accountId":"acc-1"}`}}},
		{Role: domain.RoleTool, ToolName: "getAccountBalance", Content: `{"success":true,"balance":10}`},
		{Role: domain.RoleAssistant, Content: "You have 10 USD."},
	}
	for _, m := range msgs {
		require.NoError(t, store.Append(session.ID, m))
	}

	history, err := store.History(session.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "check balance", history[0].Content)
	assert.Equal(t, "getAccountBalance", history[1].ToolCalls[0].Name)
	assert.Equal(t, "You have 10 USD.", history[3].Content)

	// Returned slices are detached from the store.
	history[0].Content = "mutated"
	fresh, err := store.History(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "check balance", fresh[0].Content)
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	store := NewMemorySessionStore()

	_, err := store.Get("nope")
	assert.Error(t, err)
	_, err = store.History("nope")
	assert.Error(t, err)
	assert.Error(t, store.Append("nope", domain.Message{Role: domain.RoleUser}))
}

func TestMemoryStoreList(t *testing.T) {
	store := NewMemorySessionStore()
	a, _ := store.GetOrCreate(domain.SessionKey{Channel: "local"})
	b, _ := store.GetOrCreate(domain.SessionKey{Channel: "gateway"})

	sessions, err := store.List()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	ids := []string{sessions[0].ID, sessions[1].ID}
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
}

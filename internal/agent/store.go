package agent

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voiceteller/voiceteller/internal/domain"
)

// SessionStore persists dialogue contexts. Histories are append-only;
// implementations never truncate or rewrite messages.
type SessionStore interface {
	// GetOrCreate returns the session for the key, creating it if absent.
	GetOrCreate(key domain.SessionKey) (*domain.Session, error)

	// Get returns the session with the given ID.
	Get(id string) (*domain.Session, error)

	// Append adds one message to a session's history.
	Append(sessionID string, msg domain.Message) error

	// History returns a session's messages in append order.
	History(sessionID string) ([]domain.Message, error)

	// List returns all sessions without their messages.
	List() ([]domain.Session, error)
}

// MemorySessionStore is an in-memory SessionStore. Used when the session
// store is configured as "memory" and by tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	byID     map[string]*domain.Session
	byKey    map[string]string // key string → session ID
	messages map[string][]domain.Message
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		byID:     make(map[string]*domain.Session),
		byKey:    make(map[string]string),
		messages: make(map[string][]domain.Message),
	}
}

func (s *MemorySessionStore) GetOrCreate(key domain.SessionKey) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byKey[key.String()]; ok {
		return s.copySession(id), nil
	}

	now := time.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byID[session.ID] = session
	s.byKey[key.String()] = session.ID
	return s.copySession(session.ID), nil
}

func (s *MemorySessionStore) Get(id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byID[id]; !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return s.copySession(id), nil
}

func (s *MemorySessionStore) Append(sessionID string, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byID[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	s.messages[sessionID] = append(s.messages[sessionID], msg)
	session.UpdatedAt = time.Now()
	return nil
}

func (s *MemorySessionStore) History(sessionID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byID[sessionID]; !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	msgs := s.messages[sessionID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemorySessionStore) List() ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]domain.Session, 0, len(s.byID))
	for _, session := range s.byID {
		sessions = append(sessions, *session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// copySession returns a detached copy with messages attached. Caller must
// hold at least a read lock.
func (s *MemorySessionStore) copySession(id string) *domain.Session {
	session := *s.byID[id]
	msgs := s.messages[id]
	session.Messages = make([]domain.Message, len(msgs))
	copy(session.Messages, msgs)
	return &session
}

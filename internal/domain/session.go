package domain

import "time"

// SessionKey identifies a conversation session by its entry channel and caller.
type SessionKey struct {
	Channel string `json:"channel"` // "local", "gateway", ...
	Caller  string `json:"caller,omitempty"`
}

// String returns a canonical string form of the session key.
func (k SessionKey) String() string {
	s := k.Channel
	if k.Caller != "" {
		s += ":" + k.Caller
	}
	return s
}

// Session is the persistent dialogue context for one conversation.
// It is owned by exactly one conversation session handle and mutated
// only as the tail effect of a completed turn.
type Session struct {
	ID        string     `json:"id"`
	Key       SessionKey `json:"key"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Messages  []Message  `json:"messages,omitempty"`
}

package domain

// ChatRole classifies UI-facing transcript entries.
type ChatRole string

const (
	ChatRoleUser   ChatRole = "user"
	ChatRoleBot    ChatRole = "bot"
	ChatRoleStatus ChatRole = "status"
)

// ChatMessage is a single display entry in the turn transcript.
// Status messages are transient placeholders removed once superseded.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

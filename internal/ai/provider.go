package ai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// JSONProvider is an optional interface for providers that can constrain the
// reply to a single JSON object.
type JSONProvider interface {
	ChatJSON(ctx context.Context, messages []Message) (string, error)
}

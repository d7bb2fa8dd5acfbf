// Package chat talks to an OpenAI-compatible chat-completion endpoint.
package chat

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is one completion. Content is choices[0].message.content and Raw is
// the unmodified response body it came from.
type Reply struct {
	Content string
	Raw     string
	Model   string
}

// Completer sends a conversation and returns the model's reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (Reply, error)
}

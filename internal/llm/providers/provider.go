// File path: internal/llm/providers/provider.go
package providers

import "context"

// Message is one chat turn sent to a generation provider.
type Message struct {
	Role    string
	Content string
}

// Provider is a minimal chat-completion surface over a generation backend.
// Implementations must be safe for concurrent use; one pooled client is
// shared by all in-flight merges.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
}

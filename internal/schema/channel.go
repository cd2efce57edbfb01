package schema

import "context"

// Channel is a chat or alert surface the assistant is reachable through.
// Start blocks until ctx is cancelled.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	// Send delivers text to the given chat on this channel.
	Send(ctx context.Context, chatID, text string) error
}

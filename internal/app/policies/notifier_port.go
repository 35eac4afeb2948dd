package policies

import "context"

// Notifier delivers an out-of-app notice (e-mail, push) rendered from a named template.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}

// Deduplicator remembers handled event ids. Seen only reads; an id is recorded by
// MarkSeen once its side effects succeeded, so a failed attempt stays retryable.
type Deduplicator interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
}

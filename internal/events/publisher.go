package events

import "context"

// Publisher delivers document status-change events to downstream consumers.
// Publishing is best-effort; callers log failures but never block on them.
type Publisher interface {
	Publish(ctx context.Context, event StatusChanged) error
}

// Noop discards every event. Used when no queue is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, event StatusChanged) error { return nil }

var _ Publisher = Noop{}

package events

import (
	"context"
	"sync"
)

// MemoryPublisher records events in memory. Used in tests and local runs.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []StatusChanged
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, event StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a snapshot of everything published so far.
func (p *MemoryPublisher) Events() []StatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StatusChanged, len(p.events))
	copy(out, p.events)
	return out
}

var _ Publisher = (*MemoryPublisher)(nil)

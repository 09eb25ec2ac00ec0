package operations

import (
	"fmt"
	"sort"
)

// Registry maps document statuses to the strategy that processes them.
// It is assembled once at startup and read-only afterwards.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds a registry with every operation the worker supports.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	r.Register(&UploadStrategy{})
	r.Register(&ConfirmStrategy{})
	r.Register(&CancelStrategy{})
	r.Register(&ResendStrategy{})
	return r
}

// Register adds a strategy. A duplicate status is a programmer error.
func (r *Registry) Register(s Strategy) {
	status := s.Status()
	if _, exists := r.strategies[status]; exists {
		panic(fmt.Sprintf("operations: duplicate strategy for status %s", status))
	}
	r.strategies[status] = s
}

// Get returns the strategy for a status, or false when none is registered.
func (r *Registry) Get(status string) (Strategy, bool) {
	s, ok := r.strategies[status]
	return s, ok
}

// Statuses returns every registered status in sorted order, so batch
// queries are deterministic.
func (r *Registry) Statuses() []string {
	out := make([]string, 0, len(r.strategies))
	for status := range r.strategies {
		out = append(out, status)
	}
	sort.Strings(out)
	return out
}

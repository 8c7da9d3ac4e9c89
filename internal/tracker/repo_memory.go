package tracker

import (
	"context"
	"sync"
)

// MemoryRepo is a mutex-guarded in-memory event log. It backs tests and
// the session-window aggregation path; production wiring can layer the
// Postgres repo underneath for durability.

type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// List returns events in append order.
func (r *MemoryRepo) List(ctx context.Context) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out, nil
}

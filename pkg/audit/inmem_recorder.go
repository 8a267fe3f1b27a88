package audit

import (
	"context"
	"sync"
)

// InMemoryRecorder implements Recorder using in-memory storage. It also
// supports listing, which backs the admin log view in tests and local runs.
type InMemoryRecorder struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemoryRecorder creates a new in-memory audit recorder
func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Append stores an entry
func (r *InMemoryRecorder) Append(ctx context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// List returns entries matching the filter, newest first.
func (r *InMemoryRecorder) List(ctx context.Context, filter Filter) ([]Entry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.ActorID != nil && (e.ActorID == nil || *e.ActorID != *filter.ActorID) {
			continue
		}
		matched = append(matched, e)
	}

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= total {
			return nil, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

package eventlog

import (
	"context"
	"sync"
	"time"

	"pharmachain/internal/batch/models"
)

// MemoryOutbox buffers events in process for the relay. It lets the
// in-memory store hand events to a network sink without holding a batch
// lock during broker I/O. Entries are lost on restart.
type MemoryOutbox struct {
	mu      sync.Mutex
	next    int64
	pending []OutboxEntry
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{next: 1}
}

func (o *MemoryOutbox) Append(_ context.Context, event models.BatchEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, OutboxEntry{Position: o.next, Event: event})
	o.next++
	return nil
}

// Pending returns up to limit undelivered entries in append order.
func (o *MemoryOutbox) Pending(_ context.Context, limit int) ([]OutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := min(limit, len(o.pending))
	out := make([]OutboxEntry, n)
	copy(out, o.pending[:n])
	return out, nil
}

// MarkPublished drops the delivered entries.
func (o *MemoryOutbox) MarkPublished(_ context.Context, positions []int64, _ time.Time) error {
	if len(positions) == 0 {
		return nil
	}
	done := make(map[int64]struct{}, len(positions))
	for _, p := range positions {
		done[p] = struct{}{}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.pending[:0]
	for _, e := range o.pending {
		if _, ok := done[e.Position]; !ok {
			kept = append(kept, e)
		}
	}
	clear(o.pending[len(kept):])
	o.pending = kept
	return nil
}

func (o *MemoryOutbox) Backlog(_ context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending), nil
}

package eventlog

import (
	"context"
	"log/slog"
	"sync"

	"pharmachain/internal/batch/models"
)

// Recorder keeps every appended event in memory, in append order.
type Recorder struct {
	mu     sync.RWMutex
	events []models.BatchEvent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Append(_ context.Context, event models.BatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of all recorded events.
func (r *Recorder) Events() []models.BatchEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.BatchEvent, len(r.events))
	copy(out, r.events)
	return out
}

// ForBatch returns the recorded events of one batch in append order.
func (r *Recorder) ForBatch(batchID string) []models.BatchEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.BatchEvent
	for _, e := range r.events {
		if e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// LogSink writes events as structured audit log lines.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, event models.BatchEvent) error {
	s.logger.InfoContext(ctx, string(event.Type),
		"log_type", "batch_event",
		"event_id", event.ID.String(),
		"batch_id", event.BatchID,
		"sequence", event.Sequence,
		"actor", event.Actor.String(),
	)
	return nil
}

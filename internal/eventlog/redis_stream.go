package eventlog

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pharmachain/internal/batch/models"
)

// RedisStream appends events to a Redis stream. A single stream preserves
// global append order; consumers filter by the batch_id field.
type RedisStream struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStream writes to stream, trimming it to roughly maxLen entries
// (0 disables trimming).
func NewRedisStream(client redis.Cmdable, stream string, maxLen int64) *RedisStream {
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStream) Append(ctx context.Context, event models.BatchEvent) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"event_id": event.ID.String(),
			"batch_id": event.BatchID,
			"sequence": event.Sequence,
			"type":     string(event.Type),
			"payload":  payload,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// StreamEntry is one decoded stream message.
type StreamEntry struct {
	ID    string
	Event models.BatchEvent
}

// Read returns up to count entries after lastID ("-" reads from the start).
func (s *RedisStream) Read(ctx context.Context, lastID string, count int64) ([]StreamEntry, error) {
	start := "-"
	if lastID != "" && lastID != "-" {
		start = "(" + lastID
	}
	msgs, err := s.client.XRangeN(ctx, s.stream, start, "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrange %s: %w", s.stream, err)
	}
	out := make([]StreamEntry, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["payload"].(string)
		if !ok {
			return nil, fmt.Errorf("stream entry %s has no payload", m.ID)
		}
		event, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, StreamEntry{ID: m.ID, Event: event})
	}
	return out, nil
}

// Package eventlog delivers committed batch events to external observers.
//
// The registry appends each event to a Sink inside the per-batch
// transaction, so per-batch delivery order equals commit order. Durable
// stores use a transactional outbox (PostgresOutbox, SQLiteJournal) as the
// Sink, and a Relay forwards outbox entries to a broker sink (RedisStream,
// KafkaPublisher, LogSink) after commit.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"pharmachain/internal/batch/metrics"
	"pharmachain/internal/batch/models"
)

// Sink receives committed batch events.
type Sink interface {
	Append(ctx context.Context, event models.BatchEvent) error
}

// Instrumented counts every event accepted by the wrapped sink.
type Instrumented struct {
	name    string
	sink    Sink
	metrics *metrics.Metrics
}

func Instrument(name string, sink Sink, m *metrics.Metrics) *Instrumented {
	return &Instrumented{name: name, sink: sink, metrics: m}
}

func (s *Instrumented) Append(ctx context.Context, event models.BatchEvent) error {
	if err := s.sink.Append(ctx, event); err != nil {
		return err
	}
	s.metrics.IncrementEventsPublished(s.name)
	return nil
}

func encode(event models.BatchEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal batch event: %w", err)
	}
	return payload, nil
}

func decode(payload []byte) (models.BatchEvent, error) {
	var event models.BatchEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return models.BatchEvent{}, fmt.Errorf("unmarshal batch event: %w", err)
	}
	return event, nil
}

package eventlog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"pharmachain/internal/batch/models"
)

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher produces each event synchronously, keyed by batch id, so
// all events of a batch share a partition and keep their order.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Append(ctx context.Context, event models.BatchEvent) error {
	record, err := p.record(event)
	if err != nil {
		return err
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s to %s: %w", event.Type, p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) record(event models.BatchEvent) (*kgo.Record, error) {
	payload, err := encode(event)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.BatchID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID.String())},
			{Key: "sequence", Value: []byte(strconv.FormatInt(event.Sequence, 10))},
		},
		Timestamp: event.OccurredAt,
	}, nil
}

// DecodeRecord turns a consumed record back into an event.
func DecodeRecord(r *kgo.Record) (models.BatchEvent, error) {
	return decode(r.Value)
}

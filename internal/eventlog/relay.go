package eventlog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pharmachain/internal/batch/metrics"
	"pharmachain/internal/batch/models"
	"pharmachain/pkg/platform/circuit"
)

// OutboxEntry is one undelivered event and its outbox position.
type OutboxEntry struct {
	Position int64
	Event    models.BatchEvent
}

// Outbox is the read side of a transactional outbox.
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, positions []int64, at time.Time) error
	Backlog(ctx context.Context) (int, error)
}

const (
	defaultRelayInterval  = time.Second
	defaultRelayBatchSize = 100
)

// Relay forwards committed outbox entries to a sink in outbox order.
// Delivery is at-least-once: an entry is marked only after the sink accepted
// it, and a failed append stops the pass so later entries of the same batch
// never overtake it. While the sink's circuit is open each pass sends a
// single probe entry instead of a full batch.
type Relay struct {
	outbox    Outbox
	sink      Sink
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	breaker   *circuit.Breaker
	now       func() time.Time
}

type RelayOption func(*Relay)

func WithRelayInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithRelayBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithRelayMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

// WithRelayBreaker tracks sink failures in b.
func WithRelayBreaker(b *circuit.Breaker) RelayOption {
	return func(r *Relay) {
		r.breaker = b
	}
}

func NewRelay(outbox Outbox, sink Sink, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:    outbox,
		sink:      sink,
		interval:  defaultRelayInterval,
		batchSize: defaultRelayBatchSize,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled. Pass failures are logged and retried
// on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Flush delivers pending entries until the outbox is drained or a delivery
// fails, and returns how many entries were delivered.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	delivered := 0
	defer r.reportBacklog(ctx)
	for {
		limit := r.batchSize
		if r.breaker != nil && r.breaker.IsOpen() {
			limit = 1
		}
		entries, err := r.outbox.Pending(ctx, limit)
		if err != nil {
			return delivered, err
		}
		if len(entries) == 0 {
			return delivered, nil
		}

		positions := make([]int64, 0, len(entries))
		var sendErr error
		for _, e := range entries {
			sendErr = r.sink.Append(ctx, e.Event)
			r.record(ctx, sendErr)
			if sendErr != nil {
				break
			}
			positions = append(positions, e.Position)
		}
		if err := r.outbox.MarkPublished(ctx, positions, r.now()); err != nil {
			return delivered, err
		}
		delivered += len(positions)
		if sendErr != nil {
			return delivered, sendErr
		}
		if len(entries) < limit || limit < r.batchSize {
			return delivered, nil
		}
	}
}

func (r *Relay) record(ctx context.Context, sendErr error) {
	if r.breaker == nil {
		return
	}
	if sendErr != nil {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.ErrorContext(ctx, "event sink circuit opened",
				"sink", r.breaker.Name(),
				"error", sendErr,
			)
		}
		return
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "event sink circuit closed", "sink", r.breaker.Name())
	}
}

func (r *Relay) reportBacklog(ctx context.Context) {
	if r.metrics == nil {
		return
	}
	n, err := r.outbox.Backlog(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to read outbox backlog", "error", err)
		return
	}
	r.metrics.SetRelayBacklog(n)
}

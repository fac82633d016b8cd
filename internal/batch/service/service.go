// Package service is the batch registry: it owns every lifecycle rule,
// authorizes callers, serializes mutations per batch and emits one event per
// committed mutation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pharmachain/internal/batch/metrics"
	"pharmachain/internal/batch/models"
	dErrors "pharmachain/pkg/domain-errors"
	"pharmachain/pkg/platform/sentinel"
	"pharmachain/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, rec *models.BatchRecord) error
	FindByID(ctx context.Context, batchID string) (*models.BatchRecord, error)
	Exists(ctx context.Context, batchID string) (bool, error)
	Update(ctx context.Context, rec *models.BatchRecord) error
}

// Sink receives each event inside the mutation's transaction. A sink error
// aborts the mutation.
type Sink interface {
	Append(ctx context.Context, event models.BatchEvent) error
}

const (
	OpRegister          = "register"
	OpTransfer          = "transfer"
	OpMarkAsSpoiled     = "mark_as_spoiled"
	OpAutoExpire        = "auto_expire"
	OpUpdateCertificate = "update_certificate"
	OpGetBatchDetails   = "get_batch_details"
	OpCheckValidity     = "check_validity"
	OpBatchExists       = "batch_exists"
)

const tracerName = "pharmachain/batch"

// Registry orchestrates batch lifecycle operations.
type Registry struct {
	store   Store
	sink    Sink
	tx      StoreTx
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	clock   func() time.Time

	// terminal holds spoiled and expired records, which never change again.
	terminal *gocache.Cache
}

type Option func(r *Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Registry) {
		r.tracer = tracer
	}
}

// WithClock overrides the commit clock. Expiry checks and timestamps read it.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		r.clock = clock
	}
}

// WithTx replaces the in-process sharded lock with a database transaction
// runner.
func WithTx(tx StoreTx) Option {
	return func(r *Registry) {
		r.tx = tx
	}
}

// WithTxTimeout bounds the default in-process transaction.
func WithTxTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if st, ok := r.tx.(*shardedTx); ok {
			st.timeout = d
		}
	}
}

// WithTerminalCache enables read caching of terminal records.
func WithTerminalCache(ttl, cleanupInterval time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.terminal = gocache.New(ttl, cleanupInterval)
		}
	}
}

// New constructs a Registry over store, appending events to sink.
func New(store Store, sink Sink, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		sink:   sink,
		tx:     newShardedTx(DefaultTxTimeout),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) now() time.Time {
	return r.clock().UTC()
}

func (r *Registry) startSpan(ctx context.Context, op, batchID string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "batch."+op, trace.WithAttributes(
		attribute.String("batch.operation", op),
		attribute.String("batch.id", batchID),
	))
}

// finish records the outcome on the span and the operation metrics.
func (r *Registry) finish(span trace.Span, op string, start time.Time, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultRejected
		if isInfraFailure(err) {
			result = metrics.ResultError
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	r.metrics.ObserveOperation(op, result, start)
	span.End()
}

func isInfraFailure(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeTimeout:
		return true
	}
	return false
}

// domainErr maps store facts and infrastructure failures onto coded errors.
// Already coded errors pass through unchanged.
func domainErr(err error, batchID, action string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.NewFor(dErrors.CodeNotFound, batchID, "batch not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.NewFor(dErrors.CodeAlreadyExists, batchID, "batch already exists")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		e := dErrors.Wrap(err, dErrors.CodeTimeout, action+" timed out")
		e.BatchID = batchID
		return e
	default:
		e := dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
		e.BatchID = batchID
		return e
	}
}

func (r *Registry) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if r.logger != nil {
		r.logger.InfoContext(ctx, event, args...)
	}
}

func (r *Registry) cacheIfTerminal(rec *models.BatchRecord) {
	if r.terminal == nil || rec.Status() == models.StatusActive {
		return
	}
	r.terminal.SetDefault(rec.BatchID, rec.Clone())
}

func (r *Registry) cachedTerminal(batchID string) (*models.BatchRecord, bool) {
	if r.terminal == nil {
		return nil, false
	}
	v, ok := r.terminal.Get(batchID)
	if !ok {
		return nil, false
	}
	return v.(*models.BatchRecord).Clone(), true
}

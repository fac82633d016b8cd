package service

import (
	"context"
	"time"

	"pharmachain/internal/batch/models"
	"pharmachain/pkg/domain"
	dErrors "pharmachain/pkg/domain-errors"
)

// Register creates a batch held by caller and emits BatchRegistered.
func (r *Registry) Register(ctx context.Context, caller domain.Address, reg models.Registration) (*models.BatchEvent, error) {
	ctx, span := r.startSpan(ctx, OpRegister, reg.BatchID)
	start := time.Now()

	event, err := r.register(ctx, caller, reg)
	r.finish(span, OpRegister, start, err)
	if err != nil {
		r.logRejected(ctx, OpRegister, reg.BatchID, err)
		return nil, err
	}
	r.logAudit(ctx, string(event.Type),
		"batch_id", event.BatchID,
		"holder", caller.String(),
		"sequence", event.Sequence)
	return event, nil
}

func (r *Registry) register(ctx context.Context, caller domain.Address, reg models.Registration) (*models.BatchEvent, error) {
	rec, err := models.NewBatchRecord(reg, caller, r.now())
	if err != nil {
		return nil, err
	}

	var event models.BatchEvent
	err = r.tx.RunInTx(ctx, reg.BatchID, func(ctx context.Context) error {
		exists, err := r.store.Exists(ctx, reg.BatchID)
		if err != nil {
			return domainErr(err, reg.BatchID, "check batch")
		}
		if exists {
			return dErrors.NewFor(dErrors.CodeAlreadyExists, reg.BatchID, "batch already exists")
		}

		event = models.RegisteredEvent(rec)
		if err := r.sink.Append(ctx, event); err != nil {
			return domainErr(err, reg.BatchID, "append batch event")
		}
		if err := r.store.Create(ctx, rec); err != nil {
			return domainErr(err, reg.BatchID, "create batch")
		}
		return nil
	})
	if err != nil {
		return nil, domainErr(err, reg.BatchID, "register batch")
	}
	return &event, nil
}

// Transfer hands custody of a batch from caller to newHolder.
func (r *Registry) Transfer(ctx context.Context, caller domain.Address, batchID, newHolder string) (*models.BatchEvent, error) {
	return r.mutate(ctx, OpTransfer, batchID, func(rec *models.BatchRecord, now time.Time) (models.BatchEvent, error) {
		if err := rec.CanTransfer(caller); err != nil {
			return models.BatchEvent{}, err
		}
		to, err := domain.ParseAddress(newHolder)
		if err != nil || to.IsZero() {
			return models.BatchEvent{}, dErrors.NewFor(dErrors.CodeInvalidIdentity, batchID, "new holder is not a valid address")
		}
		from := rec.CurrentHolder
		rec.ApplyTransfer(to, now)
		return models.TransferredEvent(rec, from), nil
	})
}

// MarkAsSpoiled records a permanent spoilage with its reason.
func (r *Registry) MarkAsSpoiled(ctx context.Context, caller domain.Address, batchID, reason string) (*models.BatchEvent, error) {
	return r.mutate(ctx, OpMarkAsSpoiled, batchID, func(rec *models.BatchRecord, now time.Time) (models.BatchEvent, error) {
		if err := rec.CanSpoil(caller); err != nil {
			return models.BatchEvent{}, err
		}
		rec.ApplySpoil(reason, now)
		return models.SpoiledEvent(rec, caller), nil
	})
}

// AutoExpire commits expiry once the deadline has passed. Anyone may call it.
func (r *Registry) AutoExpire(ctx context.Context, caller domain.Address, batchID string) (*models.BatchEvent, error) {
	return r.mutate(ctx, OpAutoExpire, batchID, func(rec *models.BatchRecord, now time.Time) (models.BatchEvent, error) {
		if err := rec.CanExpire(now); err != nil {
			return models.BatchEvent{}, err
		}
		rec.ApplyExpire(now)
		return models.ExpiredEvent(rec, caller), nil
	})
}

// UpdateCertificateHash replaces the certificate of an active batch.
func (r *Registry) UpdateCertificateHash(ctx context.Context, caller domain.Address, batchID, newHash string) (*models.BatchEvent, error) {
	return r.mutate(ctx, OpUpdateCertificate, batchID, func(rec *models.BatchRecord, now time.Time) (models.BatchEvent, error) {
		if err := rec.CanUpdateCertificate(caller, newHash); err != nil {
			return models.BatchEvent{}, err
		}
		rec.ApplyCertificate(newHash, now)
		return models.CertificateUpdatedEvent(rec, caller), nil
	})
}

// mutate loads the record inside the batch transaction, lets apply validate
// and change it, then appends the event and persists the record. Nothing is
// stored when apply or the sink fails.
func (r *Registry) mutate(
	ctx context.Context,
	op, batchID string,
	apply func(rec *models.BatchRecord, now time.Time) (models.BatchEvent, error),
) (*models.BatchEvent, error) {
	ctx, span := r.startSpan(ctx, op, batchID)
	start := time.Now()

	var (
		event     models.BatchEvent
		committed *models.BatchRecord
	)
	err := r.tx.RunInTx(ctx, batchID, func(ctx context.Context) error {
		rec, err := r.store.FindByID(ctx, batchID)
		if err != nil {
			return domainErr(err, batchID, "load batch")
		}
		event, err = apply(rec, r.now())
		if err != nil {
			return err
		}
		if err := r.sink.Append(ctx, event); err != nil {
			return domainErr(err, batchID, "append batch event")
		}
		if err := r.store.Update(ctx, rec); err != nil {
			return domainErr(err, batchID, "update batch")
		}
		committed = rec
		return nil
	})
	if err != nil {
		err = domainErr(err, batchID, op)
		r.finish(span, op, start, err)
		r.logRejected(ctx, op, batchID, err)
		return nil, err
	}
	r.finish(span, op, start, nil)

	r.cacheIfTerminal(committed)
	r.logAudit(ctx, string(event.Type),
		"batch_id", batchID,
		"actor", event.Actor.String(),
		"sequence", event.Sequence)
	return &event, nil
}

func (r *Registry) logRejected(ctx context.Context, op, batchID string, err error) {
	if r.logger == nil {
		return
	}
	if isInfraFailure(err) {
		r.logger.ErrorContext(ctx, "batch operation failed", "operation", op, "batch_id", batchID, "error", err)
		return
	}
	r.logger.DebugContext(ctx, "batch operation rejected", "operation", op, "batch_id", batchID, "code", dErrors.CodeOf(err))
}

// GetBatchDetails returns the committed record and its derived expiry facts.
func (r *Registry) GetBatchDetails(ctx context.Context, batchID string) (*models.BatchDetails, error) {
	ctx, span := r.startSpan(ctx, OpGetBatchDetails, batchID)
	start := time.Now()

	rec, err := r.load(ctx, batchID)
	r.finish(span, OpGetBatchDetails, start, err)
	if err != nil {
		return nil, err
	}
	return models.NewBatchDetails(rec, r.now()), nil
}

// CheckBatchValidity reports whether the batch is neither spoiled nor
// committed as expired. A batch past its deadline stays valid until
// AutoExpire commits.
func (r *Registry) CheckBatchValidity(ctx context.Context, batchID string) (bool, error) {
	ctx, span := r.startSpan(ctx, OpCheckValidity, batchID)
	start := time.Now()

	rec, err := r.load(ctx, batchID)
	r.finish(span, OpCheckValidity, start, err)
	if err != nil {
		return false, err
	}
	return rec.IsValid(), nil
}

// BatchExists never fails for an unknown id.
func (r *Registry) BatchExists(ctx context.Context, batchID string) (bool, error) {
	ctx, span := r.startSpan(ctx, OpBatchExists, batchID)
	start := time.Now()

	if _, ok := r.cachedTerminal(batchID); ok {
		r.finish(span, OpBatchExists, start, nil)
		return true, nil
	}
	exists, err := r.store.Exists(ctx, batchID)
	if err != nil {
		err = domainErr(err, batchID, "check batch")
	}
	r.finish(span, OpBatchExists, start, err)
	return exists, err
}

func (r *Registry) load(ctx context.Context, batchID string) (*models.BatchRecord, error) {
	if rec, ok := r.cachedTerminal(batchID); ok {
		return rec, nil
	}
	rec, err := r.store.FindByID(ctx, batchID)
	if err != nil {
		return nil, domainErr(err, batchID, "load batch")
	}
	r.cacheIfTerminal(rec)
	return rec, nil
}

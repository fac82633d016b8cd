package service

import (
	"context"
	"sync"
	"time"

	dErrors "pharmachain/pkg/domain-errors"
)

// StoreTx runs fn as one atomic unit for a single batch. Implementations
// wrap a database transaction carried in the context or, in memory, a
// per-batch lock. Operations on different batches must not block each other.
type StoreTx interface {
	RunInTx(ctx context.Context, batchID string, fn func(ctx context.Context) error) error
}

// numBatchShards spreads batch ids over independent mutexes so unrelated
// batches rarely contend.
const numBatchShards = 128

// DefaultTxTimeout bounds a registry transaction when the caller set no deadline.
const DefaultTxTimeout = 5 * time.Second

type shardedTx struct {
	shards  [numBatchShards]sync.Mutex
	timeout time.Duration
}

func newShardedTx(timeout time.Duration) *shardedTx {
	return &shardedTx{timeout: timeout}
}

func (t *shardedTx) RunInTx(ctx context.Context, batchID string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := &t.shards[hashBatchID(batchID)%numBatchShards]
	shard.Lock()
	defer shard.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// hashBatchID is FNV-1a.
func hashBatchID(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

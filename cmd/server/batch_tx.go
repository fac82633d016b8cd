package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pharmachain/internal/batch/service"
	dErrors "pharmachain/pkg/domain-errors"
	txcontext "pharmachain/pkg/platform/tx"
)

// batchPostgresTx runs registry operations in a pgx transaction. Row locks
// taken by the store (SELECT ... FOR UPDATE) serialize writers per batch.
type batchPostgresTx struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func newBatchPostgresTx(pool *pgxpool.Pool, timeout time.Duration) *batchPostgresTx {
	return &batchPostgresTx{pool: pool, timeout: timeout}
}

func (t *batchPostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	ctx, cancel, err := boundTx(ctx, t.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return txErr(ctx, err)
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(txcontext.WithPgx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return txErr(ctx, err)
	}
	return nil
}

// batchSQLiteTx runs registry operations in a SQLite transaction. The DSN
// opens transactions with BEGIN IMMEDIATE, so writers queue on the database
// lock instead of failing at commit.
type batchSQLiteTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newBatchSQLiteTx(db *sql.DB, timeout time.Duration) *batchSQLiteTx {
	return &batchSQLiteTx{db: db, timeout: timeout}
}

func (t *batchSQLiteTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	ctx, cancel, err := boundTx(ctx, t.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return txErr(ctx, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return txErr(ctx, err)
	}
	return nil
}

func boundTx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, nil, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if timeout == 0 {
		timeout = service.DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

func txErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "transaction failed")
}

var (
	_ service.StoreTx = (*batchPostgresTx)(nil)
	_ service.StoreTx = (*batchSQLiteTx)(nil)
)

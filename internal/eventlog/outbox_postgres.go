package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pharmachain/internal/batch/models"
	txcontext "pharmachain/pkg/platform/tx"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresOutbox writes events to the batch_outbox table. Inside a registry
// transaction the insert joins that transaction, so an event exists exactly
// when its mutation committed.
type PostgresOutbox struct {
	pool *pgxpool.Pool
}

func NewPostgresOutbox(pool *pgxpool.Pool) *PostgresOutbox {
	return &PostgresOutbox{pool: pool}
}

func (o *PostgresOutbox) execer(ctx context.Context) pgExecutor {
	if tx, ok := txcontext.FromPgx(ctx); ok {
		return tx
	}
	return o.pool
}

func (o *PostgresOutbox) Append(ctx context.Context, event models.BatchEvent) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO batch_outbox (event_id, batch_id, sequence, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = o.execer(ctx).Exec(ctx, query,
		event.ID,
		event.BatchID,
		event.Sequence,
		string(event.Type),
		payload,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Pending returns up to limit undelivered entries in insertion order.
func (o *PostgresOutbox) Pending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT position, payload
		FROM batch_outbox
		WHERE published_at IS NULL
		ORDER BY position
		LIMIT $1
	`
	rows, err := o.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var (
			position int64
			payload  []byte
		)
		if err := rows.Scan(&position, &payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		event, err := decode(payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, OutboxEntry{Position: position, Event: event})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished records delivery of the given positions.
func (o *PostgresOutbox) MarkPublished(ctx context.Context, positions []int64, at time.Time) error {
	if len(positions) == 0 {
		return nil
	}
	_, err := o.pool.Exec(ctx,
		`UPDATE batch_outbox SET published_at = $2 WHERE position = ANY($1)`,
		positions, at)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// Backlog counts undelivered entries.
func (o *PostgresOutbox) Backlog(ctx context.Context) (int, error) {
	var n int
	err := o.pool.QueryRow(ctx, `SELECT count(*) FROM batch_outbox WHERE published_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count outbox backlog: %w", err)
	}
	return n, nil
}

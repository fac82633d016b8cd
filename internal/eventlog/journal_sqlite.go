package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pharmachain/internal/batch/models"
	txcontext "pharmachain/pkg/platform/tx"
)

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLiteJournal is the outbox of the SQLite backend. Appends join the
// registry transaction carried in the context.
type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLiteJournal(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

func (j *SQLiteJournal) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return j.db
}

func (j *SQLiteJournal) Append(ctx context.Context, event models.BatchEvent) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO batch_journal (event_id, batch_id, sequence, event_type, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = j.execer(ctx).ExecContext(ctx, query,
		event.ID.String(),
		event.BatchID,
		event.Sequence,
		string(event.Type),
		payload,
		event.OccurredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Pending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT position, payload
		FROM batch_journal
		WHERE published_at IS NULL
		ORDER BY position
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var (
			position int64
			payload  []byte
		)
		if err := rows.Scan(&position, &payload); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		event, err := decode(payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, OutboxEntry{Position: position, Event: event})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

func (j *SQLiteJournal) MarkPublished(ctx context.Context, positions []int64, at time.Time) (retErr error) {
	if len(positions) == 0 {
		return nil
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal update: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	stamp := at.UTC().Format(time.RFC3339Nano)
	for _, p := range positions {
		if _, err := tx.ExecContext(ctx, `UPDATE batch_journal SET published_at = ? WHERE position = ?`, stamp, p); err != nil {
			return fmt.Errorf("mark journal published: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal update: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Backlog(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT count(*) FROM batch_journal WHERE published_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count journal backlog: %w", err)
	}
	return n, nil
}

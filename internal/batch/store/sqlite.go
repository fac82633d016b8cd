package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pharmachain/internal/batch/models"
	"pharmachain/pkg/platform/sentinel"
	txcontext "pharmachain/pkg/platform/tx"
)

type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLite persists records in an embedded database. Registry transactions
// begin IMMEDIATE, so a record read inside one cannot change before commit.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) execer(ctx context.Context) sqlExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *SQLite) Create(ctx context.Context, rec *models.BatchRecord) error {
	query := `
		INSERT INTO batches (` + batchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (batch_id) DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		rec.BatchID,
		rec.DrugName,
		rec.Manufacturer,
		rec.Origin,
		rec.ManufactureTime,
		rec.ExpiryTime,
		rec.Expired,
		rec.Spoiled,
		rec.SpoilReason,
		rec.CertificateHash,
		rec.CurrentHolder.String(),
		rec.Version,
		formatTime(rec.RegisteredAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *SQLite) FindByID(ctx context.Context, batchID string) (*models.BatchRecord, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE batch_id = ?`
	var (
		rec                   models.BatchRecord
		holder                string
		registered, updatedAt string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, batchID).Scan(
		&rec.BatchID,
		&rec.DrugName,
		&rec.Manufacturer,
		&rec.Origin,
		&rec.ManufactureTime,
		&rec.ExpiryTime,
		&rec.Expired,
		&rec.Spoiled,
		&rec.SpoilReason,
		&rec.CertificateHash,
		&holder,
		&rec.Version,
		&registered,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	if rec.CurrentHolder, err = parseHolder(rec.BatchID, holder); err != nil {
		return nil, err
	}
	if rec.RegisteredAt, err = parseTime(registered); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLite) Exists(ctx context.Context, batchID string) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM batches WHERE batch_id = ?)`, batchID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check batch exists: %w", err)
	}
	return exists, nil
}

func (s *SQLite) Update(ctx context.Context, rec *models.BatchRecord) error {
	query := `
		UPDATE batches SET
			expired = ?,
			spoiled = ?,
			spoil_reason = ?,
			certificate_hash = ?,
			current_holder = ?,
			version = ?,
			updated_at = ?
		WHERE batch_id = ?
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		rec.Expired,
		rec.Spoiled,
		rec.SpoilReason,
		rec.CertificateHash,
		rec.CurrentHolder.String(),
		rec.Version,
		formatTime(rec.UpdatedAt),
		rec.BatchID,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

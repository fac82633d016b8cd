package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pharmachain/internal/batch/models"
	"pharmachain/pkg/platform/sentinel"
	txcontext "pharmachain/pkg/platform/tx"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const batchColumns = `batch_id, drug_name, manufacturer, origin, manufacture_time, expiry_time,
		expired, spoiled, spoil_reason, certificate_hash, current_holder, version, registered_at, updated_at`

// Postgres persists records in the batches table. Inside a registry
// transaction FindByID locks the row until commit.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) execer(ctx context.Context) (pgExecutor, bool) {
	if tx, ok := txcontext.FromPgx(ctx); ok {
		return tx, true
	}
	return s.pool, false
}

func (s *Postgres) Create(ctx context.Context, rec *models.BatchRecord) error {
	db, _ := s.execer(ctx)
	query := `
		INSERT INTO batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (batch_id) DO NOTHING
	`
	tag, err := db.Exec(ctx, query,
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
		rec.RegisteredAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, batchID string) (*models.BatchRecord, error) {
	db, inTx := s.execer(ctx)
	query := `SELECT ` + batchColumns + ` FROM batches WHERE batch_id = $1`
	if inTx {
		query += ` FOR UPDATE`
	}
	rec, err := scanBatch(db.QueryRow(ctx, query, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	return rec, nil
}

func (s *Postgres) Exists(ctx context.Context, batchID string) (bool, error) {
	db, _ := s.execer(ctx)
	var exists bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM batches WHERE batch_id = $1)`, batchID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check batch exists: %w", err)
	}
	return exists, nil
}

func (s *Postgres) Update(ctx context.Context, rec *models.BatchRecord) error {
	db, _ := s.execer(ctx)
	query := `
		UPDATE batches SET
			expired = $2,
			spoiled = $3,
			spoil_reason = $4,
			certificate_hash = $5,
			current_holder = $6,
			version = $7,
			updated_at = $8
		WHERE batch_id = $1
	`
	tag, err := db.Exec(ctx, query,
		rec.BatchID,
		rec.Expired,
		rec.Spoiled,
		rec.SpoilReason,
		rec.CertificateHash,
		rec.CurrentHolder.String(),
		rec.Version,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanBatch(row pgx.Row) (*models.BatchRecord, error) {
	var (
		rec    models.BatchRecord
		holder string
	)
	err := row.Scan(
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
		&rec.RegisteredAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.CurrentHolder, err = parseHolder(rec.BatchID, holder); err != nil {
		return nil, err
	}
	rec.RegisteredAt = rec.RegisteredAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

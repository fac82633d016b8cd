//go:build integration

package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/suite"

	txcontext "pharmachain/pkg/platform/tx"
	"pharmachain/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	storeContract
	postgres *containers.PostgresContainer
	pg       *Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.pg = NewPostgres(s.postgres.Pool)
	s.store = s.pg
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "batch_outbox", "batches"))
}

// TestFindByIDLocksRowInsideTransaction verifies that concurrent
// read-modify-write cycles on one batch serialize on the row lock.
func (s *PostgresStoreSuite) TestFindByIDLocksRowInsideTransaction() {
	s.Require().NoError(s.pg.Create(s.ctx, newRecord(s.T(), "L1")))

	const workers = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pgx.BeginFunc(s.ctx, s.postgres.Pool, func(tx pgx.Tx) error {
				ctx := txcontext.WithPgx(s.ctx, tx)
				rec, err := s.pg.FindByID(ctx, "L1")
				if err != nil {
					return err
				}
				if rec.CurrentHolder != holderA {
					return nil
				}
				rec.ApplyTransfer(holderB, time.Now().UTC())
				if err := s.pg.Update(ctx, rec); err != nil {
					return err
				}
				successes.Add(1)
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	found, err := s.pg.FindByID(s.ctx, "L1")
	s.Require().NoError(err)
	s.Equal(int64(2), found.Version)
}

package eventlog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pharmachain/internal/batch/models"
	"pharmachain/internal/platform/sqlite"
	"pharmachain/pkg/domain"
)

var (
	manufacturer = domain.MustParseAddress("0x1111111111111111111111111111111111111111")
	distributor  = domain.MustParseAddress("0x2222222222222222222222222222222222222222")
	t0           = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

// lifecycle returns the events of a batch registered by the manufacturer,
// transferred to the distributor and then spoiled.
func lifecycle(t *testing.T, batchID string) []models.BatchEvent {
	t.Helper()
	rec, err := models.NewBatchRecord(models.Registration{
		BatchID:         batchID,
		DrugName:        "Aspirin",
		ManufactureTime: t0.Unix(),
		ExpiryTime:      t0.Add(24 * time.Hour).Unix(),
	}, manufacturer, t0)
	require.NoError(t, err)
	events := []models.BatchEvent{models.RegisteredEvent(rec)}

	rec.ApplyTransfer(distributor, t0.Add(time.Minute))
	events = append(events, models.TransferredEvent(rec, manufacturer))

	rec.ApplySpoil("temperature excursion", t0.Add(2*time.Minute))
	events = append(events, models.SpoiledEvent(rec, distributor))
	return events
}

func openJournal(t *testing.T) (*SQLiteJournal, func()) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	return NewSQLiteJournal(db), func() { _ = db.Close() }
}

var errSinkDown = errors.New("sink down")

// flakySink rejects appends while down is set.
type flakySink struct {
	mu       sync.Mutex
	down     bool
	failFrom int
	recorder *Recorder
}

func (s *flakySink) Append(ctx context.Context, event models.BatchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down && s.recorder.Len() >= s.failFrom {
		return errSinkDown
	}
	return s.recorder.Append(ctx, event)
}

func (s *flakySink) recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = false
}

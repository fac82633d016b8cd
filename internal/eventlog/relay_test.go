package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"pharmachain/internal/batch/metrics"
	"pharmachain/internal/batch/models"
	"pharmachain/pkg/platform/circuit"
	txcontext "pharmachain/pkg/platform/tx"
)

type RelaySuite struct {
	suite.Suite
	journal *SQLiteJournal
	closeDB func()
	ctx     context.Context
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.ctx = context.Background()
	s.journal, s.closeDB = openJournal(s.T())
}

func (s *RelaySuite) TearDownTest() {
	s.closeDB()
}

func (s *RelaySuite) appendAll(events []models.BatchEvent) {
	for _, e := range events {
		s.Require().NoError(s.journal.Append(s.ctx, e))
	}
}

func (s *RelaySuite) TestFlushDeliversInJournalOrder() {
	b1 := lifecycle(s.T(), "B1")
	b2 := lifecycle(s.T(), "B2")
	// interleave the two batches
	s.appendAll([]models.BatchEvent{b1[0], b2[0], b1[1], b2[1], b1[2], b2[2]})

	recorder := NewRecorder()
	relay := NewRelay(s.journal, recorder, WithRelayBatchSize(4))

	n, err := relay.Flush(s.ctx)
	s.Require().NoError(err)
	s.Equal(6, n)
	s.Equal(b1, recorder.ForBatch("B1"))
	s.Equal(b2, recorder.ForBatch("B2"))

	backlog, err := s.journal.Backlog(s.ctx)
	s.Require().NoError(err)
	s.Zero(backlog)

	s.Run("second flush delivers nothing", func() {
		n, err := relay.Flush(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)
		s.Equal(6, recorder.Len())
	})
}

func (s *RelaySuite) TestFailedDeliveryStopsPassAndResumes() {
	events := lifecycle(s.T(), "B1")
	s.appendAll(events)

	sink := &flakySink{down: true, failFrom: 1, recorder: NewRecorder()}
	relay := NewRelay(s.journal, sink)

	n, err := relay.Flush(s.ctx)
	s.ErrorIs(err, errSinkDown)
	s.Equal(1, n)

	backlog, err := s.journal.Backlog(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, backlog)

	sink.recover()
	n, err = relay.Flush(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal(events, sink.recorder.Events())
}

func (s *RelaySuite) TestRolledBackAppendIsNeverRelayed() {
	events := lifecycle(s.T(), "B1")

	tx, err := s.journal.db.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	s.Require().NoError(s.journal.Append(txcontext.WithTx(s.ctx, tx), events[0]))
	s.Require().NoError(tx.Rollback())

	pending, err := s.journal.Pending(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *RelaySuite) TestDuplicateSequenceIsRejected() {
	events := lifecycle(s.T(), "B1")
	s.Require().NoError(s.journal.Append(s.ctx, events[0]))

	dup := events[1]
	dup.Sequence = events[0].Sequence
	s.Error(s.journal.Append(s.ctx, dup))
}

func (s *RelaySuite) TestFlushReportsBacklog() {
	s.appendAll(lifecycle(s.T(), "B1"))

	m := metrics.New(prometheus.NewRegistry())
	sink := &flakySink{down: true, failFrom: 0, recorder: NewRecorder()}
	relay := NewRelay(s.journal, Instrument("memory", sink, m), WithRelayMetrics(m))

	_, err := relay.Flush(s.ctx)
	s.ErrorIs(err, errSinkDown)
	s.Equal(float64(3), testutil.ToFloat64(m.RelayBacklog))

	sink.recover()
	_, err = relay.Flush(s.ctx)
	s.Require().NoError(err)
	s.Equal(float64(0), testutil.ToFloat64(m.RelayBacklog))
	s.Equal(float64(3), testutil.ToFloat64(m.EventsPublished.WithLabelValues("memory")))
}

func (s *RelaySuite) TestRunStopsOnCancel() {
	s.appendAll(lifecycle(s.T(), "B1"))
	recorder := NewRecorder()
	relay := NewRelay(s.journal, recorder, WithRelayInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	s.Eventually(func() bool { return recorder.Len() == 3 }, time.Second, 10*time.Millisecond)
	cancel()
	s.NoError(<-done)
}

func (s *RelaySuite) TestOpenCircuitSendsSingleProbes() {
	events := lifecycle(s.T(), "B1")
	s.appendAll(events)

	sink := &flakySink{down: true, recorder: NewRecorder()}
	breaker := circuit.New("test", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(2))
	relay := NewRelay(s.journal, sink, WithRelayBreaker(breaker))

	_, err := relay.Flush(s.ctx)
	s.ErrorIs(err, errSinkDown)
	s.True(breaker.IsOpen())

	sink.recover()
	n, err := relay.Flush(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n, "one probe while open")
	s.True(breaker.IsOpen())

	n, err = relay.Flush(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.False(breaker.IsOpen(), "second success closes the circuit")

	n, err = relay.Flush(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(events, sink.recorder.Events())
}

package service

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"pharmachain/internal/batch/models"
	"pharmachain/internal/batch/store"
	"pharmachain/internal/eventlog"
	"pharmachain/pkg/domain"
)

// TestProperty_RegistryMatchesCommittedHistory drives random operation
// sequences against one batch and checks the registry against the events it
// emitted.
func TestProperty_RegistryMatchesCommittedHistory(t *testing.T) {
	parties := []domain.Address{holderA, holderB, holderC}

	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		clock := &fakeClock{now: t0}
		recorder := eventlog.NewRecorder()
		registry := New(store.NewInMemory(), recorder, WithClock(clock.Now))

		_, err := registry.Register(ctx, holderA, registration("P"))
		if err != nil {
			rt.Fatalf("register: %v", err)
		}

		holder := holderA
		spoiled, expired := false, false
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			caller := rapid.SampledFrom(parties).Draw(rt, "caller")
			clock.Set(t0.Add(time.Duration(rapid.IntRange(0, 120).Draw(rt, "minute")) * time.Minute))

			var opErr error
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				to := rapid.SampledFrom(parties).Draw(rt, "to")
				_, opErr = registry.Transfer(ctx, caller, "P", to.String())
				if opErr == nil {
					if caller != holder || spoiled || expired {
						rt.Fatalf("transfer by %s accepted in state holder=%s spoiled=%v expired=%v", caller, holder, spoiled, expired)
					}
					holder = to
				}
			case 1:
				_, opErr = registry.MarkAsSpoiled(ctx, caller, "P", "reason")
				if opErr == nil {
					spoiled = true
				}
			case 2:
				_, opErr = registry.AutoExpire(ctx, caller, "P")
				if opErr == nil {
					expired = true
				}
			case 3:
				_, opErr = registry.UpdateCertificateHash(ctx, caller, "P", "h")
			}

			d, err := registry.GetBatchDetails(ctx, "P")
			if err != nil {
				rt.Fatalf("details: %v", err)
			}
			rec := d.Record
			if rec.CurrentHolder != holder || rec.Spoiled != spoiled || rec.Expired != expired {
				rt.Fatalf("record %+v diverged from history holder=%s spoiled=%v expired=%v", rec, holder, spoiled, expired)
			}
			if rec.Spoiled && rec.Expired {
				rt.Fatalf("record reached both terminal states")
			}
			valid, err := registry.CheckBatchValidity(ctx, "P")
			if err != nil {
				rt.Fatalf("validity: %v", err)
			}
			if valid != (!spoiled && !expired) {
				rt.Fatalf("validity %v with spoiled=%v expired=%v", valid, spoiled, expired)
			}

			events := recorder.ForBatch("P")
			if int64(len(events)) != rec.Version {
				rt.Fatalf("%d events for version %d", len(events), rec.Version)
			}
			if last := events[len(events)-1]; last.Sequence != rec.Version {
				rt.Fatalf("last event sequence %d, version %d", last.Sequence, rec.Version)
			}
			if spoiled && rec.Status() != models.StatusSpoiled {
				rt.Fatalf("spoiled flag without spoiled status")
			}
		}
	})
}

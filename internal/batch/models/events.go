package models

import (
	"time"

	"github.com/google/uuid"

	"pharmachain/pkg/domain"
)

// EventType names a committed batch mutation. The values match the event
// names consumers already subscribe to.
type EventType string

const (
	EventBatchRegistered    EventType = "BatchRegistered"
	EventBatchTransferred   EventType = "BatchTransferred"
	EventBatchSpoiled       EventType = "BatchSpoiled"
	EventBatchExpired       EventType = "BatchExpired"
	EventCertificateUpdated EventType = "CertificateUpdated"
)

// BatchEvent is the durable notification emitted for every committed mutation.
//
// Sequence equals the record Version after the commit, so per-batch ordering
// is recoverable from the event alone. Only the fields that belong to the
// event type are populated.
type BatchEvent struct {
	ID         uuid.UUID      `json:"id"`
	Type       EventType      `json:"type"`
	BatchID    string         `json:"batch_id"`
	Sequence   int64          `json:"sequence"`
	Actor      domain.Address `json:"actor"`
	OccurredAt time.Time      `json:"occurred_at"`

	DrugName        string         `json:"drug_name,omitempty"`
	Holder          domain.Address `json:"holder,omitempty"`
	From            domain.Address `json:"from,omitempty"`
	To              domain.Address `json:"to,omitempty"`
	Reason          string         `json:"reason,omitempty"`
	CertificateHash string         `json:"certificate_hash,omitempty"`
}

func newEvent(t EventType, rec *BatchRecord, actor domain.Address) BatchEvent {
	return BatchEvent{
		ID:         uuid.New(),
		Type:       t,
		BatchID:    rec.BatchID,
		Sequence:   rec.Version,
		Actor:      actor,
		OccurredAt: rec.UpdatedAt,
	}
}

// RegisteredEvent describes a freshly created record.
func RegisteredEvent(rec *BatchRecord) BatchEvent {
	e := newEvent(EventBatchRegistered, rec, rec.CurrentHolder)
	e.DrugName = rec.DrugName
	e.Holder = rec.CurrentHolder
	return e
}

// TransferredEvent describes a custody change from the previous holder.
func TransferredEvent(rec *BatchRecord, from domain.Address) BatchEvent {
	e := newEvent(EventBatchTransferred, rec, from)
	e.From = from
	e.To = rec.CurrentHolder
	return e
}

func SpoiledEvent(rec *BatchRecord, actor domain.Address) BatchEvent {
	e := newEvent(EventBatchSpoiled, rec, actor)
	e.Reason = rec.SpoilReason
	return e
}

func ExpiredEvent(rec *BatchRecord, actor domain.Address) BatchEvent {
	return newEvent(EventBatchExpired, rec, actor)
}

func CertificateUpdatedEvent(rec *BatchRecord, actor domain.Address) BatchEvent {
	e := newEvent(EventCertificateUpdated, rec, actor)
	e.CertificateHash = rec.CertificateHash
	return e
}

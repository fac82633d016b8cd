package models

import "time"

// RegisterBatchRequest is the body of POST /batches.
type RegisterBatchRequest struct {
	BatchID         string `json:"batch_id"`
	DrugName        string `json:"drug_name"`
	Manufacturer    string `json:"manufacturer"`
	Origin          string `json:"origin"`
	ManufactureTime int64  `json:"manufacture_time"`
	ExpiryTime      int64  `json:"expiry_time"`
	CertificateHash string `json:"certificate_hash"`
}

// ToRegistration converts the request into the registry input.
func (r *RegisterBatchRequest) ToRegistration() Registration {
	return Registration{
		BatchID:         r.BatchID,
		DrugName:        r.DrugName,
		Manufacturer:    r.Manufacturer,
		Origin:          r.Origin,
		ManufactureTime: r.ManufactureTime,
		ExpiryTime:      r.ExpiryTime,
		CertificateHash: r.CertificateHash,
	}
}

// TransferBatchRequest is the body of POST /batches/{batchID}/transfer.
// NewHolder is passed to the registry unparsed.
type TransferBatchRequest struct {
	NewHolder string `json:"new_holder"`
}

// SpoilBatchRequest is the body of POST /batches/{batchID}/spoil.
type SpoilBatchRequest struct {
	Reason string `json:"reason"`
}

// UpdateCertificateRequest is the body of PUT /batches/{batchID}/certificate.
type UpdateCertificateRequest struct {
	CertificateHash string `json:"certificate_hash"`
}

// BatchDetails is a record plus the time-derived facts computed at read time.
type BatchDetails struct {
	Record        *BatchRecord
	IsPastExpiry  bool
	DaysRemaining int64
}

// NewBatchDetails evaluates the derived facts of rec at now.
func NewBatchDetails(rec *BatchRecord, now time.Time) *BatchDetails {
	return &BatchDetails{
		Record:        rec,
		IsPastExpiry:  rec.IsPastExpiry(now),
		DaysRemaining: rec.DaysRemaining(now),
	}
}

// BatchDetailsResponse is the JSON shape of GET /batches/{batchID}.
type BatchDetailsResponse struct {
	BatchID         string    `json:"batch_id"`
	DrugName        string    `json:"drug_name"`
	Manufacturer    string    `json:"manufacturer"`
	Origin          string    `json:"origin"`
	ManufactureTime int64     `json:"manufacture_time"`
	ExpiryTime      int64     `json:"expiry_time"`
	Expired         bool      `json:"expired"`
	Spoiled         bool      `json:"spoiled"`
	SpoilReason     string    `json:"spoil_reason"`
	CertificateHash string    `json:"certificate_hash"`
	CurrentHolder   string    `json:"current_holder"`
	Status          Status    `json:"status"`
	IsPastExpiry    bool      `json:"is_past_expiry"`
	DaysRemaining   int64     `json:"days_remaining"`
	Version         int64     `json:"version"`
	RegisteredAt    time.Time `json:"registered_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToResponse renders details for the API. Holders are shown in checksum form.
func (d *BatchDetails) ToResponse() *BatchDetailsResponse {
	r := d.Record
	return &BatchDetailsResponse{
		BatchID:         r.BatchID,
		DrugName:        r.DrugName,
		Manufacturer:    r.Manufacturer,
		Origin:          r.Origin,
		ManufactureTime: r.ManufactureTime,
		ExpiryTime:      r.ExpiryTime,
		Expired:         r.Expired,
		Spoiled:         r.Spoiled,
		SpoilReason:     r.SpoilReason,
		CertificateHash: r.CertificateHash,
		CurrentHolder:   r.CurrentHolder.Checksum(),
		Status:          r.Status(),
		IsPastExpiry:    d.IsPastExpiry,
		DaysRemaining:   d.DaysRemaining,
		Version:         r.Version,
		RegisteredAt:    r.RegisteredAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// EventResponse acknowledges a committed mutation.
type EventResponse struct {
	EventID  string    `json:"event_id"`
	Event    EventType `json:"event"`
	BatchID  string    `json:"batch_id"`
	Sequence int64     `json:"sequence"`
}

func NewEventResponse(e *BatchEvent) *EventResponse {
	return &EventResponse{
		EventID:  e.ID.String(),
		Event:    e.Type,
		BatchID:  e.BatchID,
		Sequence: e.Sequence,
	}
}

type ValidityResponse struct {
	BatchID string `json:"batch_id"`
	Valid   bool   `json:"valid"`
}

type ExistsResponse struct {
	BatchID string `json:"batch_id"`
	Exists  bool   `json:"exists"`
}

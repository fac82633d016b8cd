package models

import (
	"time"

	"pharmachain/pkg/domain"
	dErrors "pharmachain/pkg/domain-errors"
)

// DefaultCertificateHash is stored when a batch is registered without a
// certificate.
const DefaultCertificateHash = "initial_certificate"

// Status is the lifecycle state derived from the stored flags.
type Status string

const (
	StatusActive  Status = "active"
	StatusSpoiled Status = "spoiled"
	StatusExpired Status = "expired"
)

// BatchRecord is the aggregate root for one tracked batch.
//
// Invariants:
//   - BatchID is unique and never reassigned
//   - DrugName, Manufacturer, Origin, ManufactureTime, ExpiryTime are fixed at registration
//   - ExpiryTime > ManufactureTime
//   - Expired and Spoiled only ever go from false to true
//   - SpoilReason is set exactly once, together with Spoiled
//   - CurrentHolder and CertificateHash change only while the batch is active
//
// Status transitions: active → spoiled | expired. Both are terminal.
//
// The stored Expired flag is a committed fact. IsPastExpiry is the
// time-derived predicate; the two diverge until AutoExpire commits.
type BatchRecord struct {
	BatchID         string         `json:"batch_id"`
	DrugName        string         `json:"drug_name"`
	Manufacturer    string         `json:"manufacturer"`
	Origin          string         `json:"origin"`
	ManufactureTime int64          `json:"manufacture_time"`
	ExpiryTime      int64          `json:"expiry_time"`
	Expired         bool           `json:"expired"`
	Spoiled         bool           `json:"spoiled"`
	SpoilReason     string         `json:"spoil_reason"`
	CertificateHash string         `json:"certificate_hash"`
	CurrentHolder   domain.Address `json:"current_holder"`
	Version         int64          `json:"version"`
	RegisteredAt    time.Time      `json:"registered_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Registration holds the caller-supplied fields of a new batch.
type Registration struct {
	BatchID         string
	DrugName        string
	Manufacturer    string
	Origin          string
	ManufactureTime int64
	ExpiryTime      int64
	CertificateHash string
}

// NewBatchRecord validates a registration and builds an active record held
// by holder.
func NewBatchRecord(reg Registration, holder domain.Address, now time.Time) (*BatchRecord, error) {
	if reg.BatchID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "batch id is required")
	}
	if reg.DrugName == "" {
		return nil, dErrors.NewFor(dErrors.CodeValidation, reg.BatchID, "drug name is required")
	}
	if reg.ExpiryTime <= reg.ManufactureTime {
		return nil, dErrors.NewFor(dErrors.CodeInvalidInterval, reg.BatchID, "expiry must be after manufacture")
	}
	if holder.IsZero() {
		return nil, dErrors.NewFor(dErrors.CodeInvalidIdentity, reg.BatchID, "registering caller has no identity")
	}
	cert := reg.CertificateHash
	if cert == "" {
		cert = DefaultCertificateHash
	}
	return &BatchRecord{
		BatchID:         reg.BatchID,
		DrugName:        reg.DrugName,
		Manufacturer:    reg.Manufacturer,
		Origin:          reg.Origin,
		ManufactureTime: reg.ManufactureTime,
		ExpiryTime:      reg.ExpiryTime,
		CertificateHash: cert,
		CurrentHolder:   holder,
		Version:         1,
		RegisteredAt:    now,
		UpdatedAt:       now,
	}, nil
}

// Status reports the lifecycle state.
func (b *BatchRecord) Status() Status {
	switch {
	case b.Spoiled:
		return StatusSpoiled
	case b.Expired:
		return StatusExpired
	default:
		return StatusActive
	}
}

// IsValid reports committed validity: neither spoiled nor expired by flag.
func (b *BatchRecord) IsValid() bool {
	return !b.Spoiled && !b.Expired
}

// IsPastExpiry reports whether the expiry deadline has objectively passed.
func (b *BatchRecord) IsPastExpiry(now time.Time) bool {
	return now.Unix() >= b.ExpiryTime
}

// DaysRemaining is the number of started days until expiry, 0 once past.
func (b *BatchRecord) DaysRemaining(now time.Time) int64 {
	left := b.ExpiryTime - now.Unix()
	if left <= 0 {
		return 0
	}
	const day = 24 * 60 * 60
	return (left + day - 1) / day
}

func (b *BatchRecord) requireHolder(caller domain.Address) error {
	if caller != b.CurrentHolder {
		return dErrors.NewFor(dErrors.CodeNotHolder, b.BatchID, "caller is not the current holder")
	}
	return nil
}

func (b *BatchRecord) requireActive() error {
	if b.Spoiled {
		return dErrors.NewFor(dErrors.CodeAlreadySpoiled, b.BatchID, "batch is spoiled")
	}
	if b.Expired {
		return dErrors.NewFor(dErrors.CodeAlreadyExpired, b.BatchID, "batch is expired")
	}
	return nil
}

// CanTransfer checks that caller may hand over custody. The recipient's
// identity is validated separately by the registry.
// Use with ApplyTransfer in Execute callbacks.
func (b *BatchRecord) CanTransfer(caller domain.Address) error {
	if err := b.requireHolder(caller); err != nil {
		return err
	}
	return b.requireActive()
}

// ApplyTransfer reassigns custody. Call CanTransfer first.
func (b *BatchRecord) ApplyTransfer(newHolder domain.Address, now time.Time) {
	b.CurrentHolder = newHolder
	b.touch(now)
}

// CanSpoil checks that caller may mark the batch spoiled.
func (b *BatchRecord) CanSpoil(caller domain.Address) error {
	if err := b.requireHolder(caller); err != nil {
		return err
	}
	return b.requireActive()
}

// ApplySpoil marks the batch spoiled. Call CanSpoil first.
func (b *BatchRecord) ApplySpoil(reason string, now time.Time) {
	b.Spoiled = true
	b.SpoilReason = reason
	b.touch(now)
}

// CanExpire checks that the expiry deadline has passed and the batch is
// still active. There is no holder restriction.
func (b *BatchRecord) CanExpire(now time.Time) error {
	if b.Expired {
		return dErrors.NewFor(dErrors.CodeAlreadyExpired, b.BatchID, "batch is already expired")
	}
	if b.Spoiled {
		return dErrors.NewFor(dErrors.CodeAlreadySpoiled, b.BatchID, "batch is spoiled")
	}
	if !b.IsPastExpiry(now) {
		return dErrors.NewFor(dErrors.CodeNotYetExpired, b.BatchID, "batch has not reached its expiry time")
	}
	return nil
}

// ApplyExpire commits expiry. Call CanExpire first.
func (b *BatchRecord) ApplyExpire(now time.Time) {
	b.Expired = true
	b.touch(now)
}

// CanUpdateCertificate checks that caller may replace the certificate hash
// with hash, which must not be empty.
func (b *BatchRecord) CanUpdateCertificate(caller domain.Address, hash string) error {
	if err := b.requireHolder(caller); err != nil {
		return err
	}
	if err := b.requireActive(); err != nil {
		return err
	}
	if hash == "" {
		return dErrors.NewFor(dErrors.CodeValidation, b.BatchID, "certificate hash is required")
	}
	return nil
}

// ApplyCertificate replaces the certificate hash. Call CanUpdateCertificate first.
func (b *BatchRecord) ApplyCertificate(hash string, now time.Time) {
	b.CertificateHash = hash
	b.touch(now)
}

func (b *BatchRecord) touch(now time.Time) {
	b.Version++
	b.UpdatedAt = now
}

// Clone returns an independent copy.
func (b *BatchRecord) Clone() *BatchRecord {
	c := *b
	return &c
}
